package model

import "fmt"

const (
	TenantsTable       = "Tenants"
	UsersTable         = "Users"
	PresenceTable      = "TenantPresence"
	TenantAPIKeysTable = "TenantAPIKeys"
	ChangelogTable     = "Changelog"
)

type TenantItem struct {
	TenantID string `dynamodbav:"tenantId"`
	Name     string `dynamodbav:"name"`
	Plan     string `dynamodbav:"plan"`
	Created  string `dynamodbav:"createdAt"`
}

type UserItem struct {
	PK           string `dynamodbav:"pk"`
	TenantID     string `dynamodbav:"tenantId"`
	UserID       string `dynamodbav:"userId"`
	Email        string `dynamodbav:"email"`
	Name         string `dynamodbav:"name"`
	Role         string `dynamodbav:"role"`
	Status       string `dynamodbav:"status"`
	PasswordHash string `dynamodbav:"passwordHash"`
	CreatedAt    string `dynamodbav:"createdAt"`
}

type TenantAPIKeyItem struct {
	TenantID   string `dynamodbav:"tenantId"`
	KeyID      string `dynamodbav:"keyId"`
	APIKey     string `dynamodbav:"apiKey"`
	CreatedAt  string `dynamodbav:"createdAt"`
	LastUsedAt string `dynamodbav:"lastUsedAt,omitempty"`
}

type ChangelogEntryItem struct {
	EntryID     string `dynamodbav:"entryId"`
	Title       string `dynamodbav:"title"`
	Body        string `dynamodbav:"body"`
	PublishedAt string `dynamodbav:"publishedAt"`
	CreatedAt   string `dynamodbav:"createdAt"`
}

func TenantScopedPK(tenantID, entityID string) string {
	return fmt.Sprintf("%s#%s", tenantID, entityID)
}
