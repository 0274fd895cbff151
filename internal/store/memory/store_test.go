package memory

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"donorslot/internal/store"
	"donorslot/internal/store/storetest"
)

func TestMemoryBackendSuite(t *testing.T) {
	suite.Run(t, &storetest.BackendSuite{
		NewBackend: func() (store.Backend, storetest.Seeder) {
			s := New()
			return s, s
		},
	})
}
