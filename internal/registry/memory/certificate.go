package memory

import (
	"context"
	"fmt"
	"sync"

	"lendledger/internal/registry"
)

type certificate struct {
	Owner       string
	MetadataRef string
}

// CertificateRegistry is the in-process reference implementation of the
// loan-certificate collaborator.
type CertificateRegistry struct {
	mu    sync.Mutex
	certs map[int64]certificate
}

func NewCertificateRegistry() *CertificateRegistry {
	return &CertificateRegistry{certs: make(map[int64]certificate)}
}

var _ registry.CertificateRegistry = (*CertificateRegistry)(nil)

func (r *CertificateRegistry) Issue(ctx context.Context, owner string, id int64, metadataRef string) error {
	if owner == "" {
		return fmt.Errorf("certificate owner is required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.certs[id]; ok {
		return fmt.Errorf("certificate %d already exists", id)
	}
	r.certs[id] = certificate{Owner: owner, MetadataRef: metadataRef}
	return nil
}

func (r *CertificateRegistry) Destroy(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.certs[id]; !ok {
		return fmt.Errorf("certificate %d does not exist", id)
	}
	delete(r.certs, id)
	return nil
}

func (r *CertificateRegistry) Exists(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.certs[id]
	return ok, nil
}

// Owner returns the holder of a certificate, for inspection in tests.
func (r *CertificateRegistry) Owner(id int64) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.certs[id]
	return c.Owner, ok
}
