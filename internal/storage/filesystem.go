package storage

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/coreauth/idp/internal/models"
)

// clientSeed is the on-disk shape of one registered client in the YAML
// seed file — clients are administratively provisioned and effectively
// immutable at runtime, so a flat file is a reasonable dev default,
// the same role the teacher gave FilesystemStorage for users.
type clientSeed struct {
	ClientID            string   `yaml:"clientId"`
	ClientSecretHash    string   `yaml:"clientSecretHash"`
	Name                string   `yaml:"name"`
	AllowedRedirectURIs []string `yaml:"allowedRedirectUris"`
}

// FilesystemClients loads the client registry once from a YAML file
// and serves lookups from memory. Re-provisioning a client means
// editing the file and restarting the process.
type FilesystemClients struct {
	byID map[string]*models.Client
}

func NewFilesystemClients(path string) (*FilesystemClients, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client registry %s: %w", path, err)
	}

	var seeds []clientSeed
	if err := yaml.Unmarshal(data, &seeds); err != nil {
		return nil, fmt.Errorf("failed to parse client registry: %w", err)
	}

	byID := make(map[string]*models.Client, len(seeds))
	for _, seed := range seeds {
		byID[seed.ClientID] = &models.Client{
			ClientID:            seed.ClientID,
			ClientSecretHash:    []byte(seed.ClientSecretHash),
			Name:                seed.Name,
			AllowedRedirectURIs: seed.AllowedRedirectURIs,
		}
	}

	return &FilesystemClients{byID: byID}, nil
}

func (f *FilesystemClients) FindByClientID(ctx context.Context, clientID string) (*models.Client, error) {
	c, ok := f.byID[clientID]
	if !ok {
		return nil, nil
	}
	return c, nil
}
