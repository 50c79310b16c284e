package models

import "errors"

// ErrNotFound is returned by stores when a record does not exist
var ErrNotFound = errors.New("not found")

// Tenant is one bot deployment: a LINE channel with its own secret, token and coaching persona
type Tenant struct {
	TenantID      string `dynamodbav:"tenant_id"`
	OwnerID       string `dynamodbav:"owner_id,omitempty"`
	ChannelSecret string `dynamodbav:"channel_secret"`
	AccessToken   string `dynamodbav:"access_token"`
	SystemPrompt  string `dynamodbav:"system_prompt,omitempty"`
}
