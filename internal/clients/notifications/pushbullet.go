package notifications

import (
	"fmt"

	"github.com/xconstruct/go-pushbullet"
)

// PushbulletClient broadcasts change notices to all of the user's devices.
type PushbulletClient struct {
	pb *pushbullet.Client
}

func NewPushbulletClient(apiKey string) *PushbulletClient {
	return &PushbulletClient{pb: pushbullet.New(apiKey)}
}

// Push sends a note to all devices. The first argument to PushNote is the
// device iden; empty means all devices.
func (c *PushbulletClient) Push(title, body string) error {
	return c.pb.PushNote("", title, body)
}

// Test verifies the API key is valid by fetching user info.
func (c *PushbulletClient) Test() error {
	if _, err := c.pb.Me(); err != nil {
		return fmt.Errorf("pushbullet authentication failed: %w", err)
	}
	return nil
}
