package rpc

import (
	"github.com/jobsentinel/jobsentinel/internal/apperr"
	"github.com/jobsentinel/jobsentinel/internal/credentials"
)

// StoreCredentialRequest is store_credential's input.
type StoreCredentialRequest struct {
	Key   credentials.Key
	Value string
}

// StoreCredential writes a secret (spec §4.10 store_credential).
func (s *Server) StoreCredential(req StoreCredentialRequest) error {
	return s.credentials.StoreSecret(req.Key, req.Value)
}

// RetrieveCredentialRequest is retrieve_credential's input.
type RetrieveCredentialRequest struct {
	Key credentials.Key
}

// RetrieveCredential reports whether key has a usable stored value.
// Credentials are never returned through the RPC surface (spec §4.10:
// "only presence flags") — this command still performs the real lookup,
// so a present-but-corrupt secret is distinguishable from an absent one,
// but the plaintext itself never crosses the boundary.
func (s *Server) RetrieveCredential(req RetrieveCredentialRequest) (bool, error) {
	_, ok, err := s.credentials.Retrieve(req.Key)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// DeleteCredentialRequest is delete_credential's input.
type DeleteCredentialRequest struct {
	Key credentials.Key
}

// DeleteCredential removes a secret (spec §4.10 delete_credential).
func (s *Server) DeleteCredential(req DeleteCredentialRequest) error {
	return s.credentials.Delete(req.Key)
}

// HasCredentialRequest is has_credential's input.
type HasCredentialRequest struct {
	Key credentials.Key
}

// HasCredential reports whether key is stored (spec §4.10 has_credential).
func (s *Server) HasCredential(req HasCredentialRequest) (bool, error) {
	return s.credentials.Has(req.Key)
}

// CredentialStatus reports presence per recognized key.
type CredentialStatus map[credentials.Key]bool

var recognizedCredentialKeys = []credentials.Key{
	credentials.KeySMTPPassword,
	credentials.KeySlackWebhook,
	credentials.KeyDiscordWebhook,
	credentials.KeyTeamsWebhook,
	credentials.KeyTelegramToken,
	credentials.KeyLinkedInSession,
}

// GetCredentialStatus reports presence for every recognized key at once
// (spec §4.10 get_credential_status), the dashboard's one-call summary
// rather than one has_credential round trip per key.
func (s *Server) GetCredentialStatus() (CredentialStatus, error) {
	status := make(CredentialStatus, len(recognizedCredentialKeys))
	for _, key := range recognizedCredentialKeys {
		ok, err := s.credentials.Has(key)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindCredentialError, "credential status", err).WithField("key", string(key))
		}
		status[key] = ok
	}
	return status, nil
}
