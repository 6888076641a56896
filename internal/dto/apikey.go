package dto

type TenantAPIKey struct {
	KeyID     string `json:"keyId"`
	APIKey    string `json:"apiKey"`
	CreatedAt string `json:"createdAt"`
}

type CreateAPIKeyResponse struct {
	Key TenantAPIKey `json:"key"`
}

type ListAPIKeysResponse struct {
	Keys []TenantAPIKey `json:"keys"`
}
