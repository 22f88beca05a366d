package stores

import (
	"moodboard-server/core"
	"moodboard-server/stores/memory"
	"os"

	"github.com/sirupsen/logrus"
)

// Store is a union interface that includes all store types.
type Store interface {
	core.BoardStore
	core.MediaStore
}

type sessionStore struct {
	core.BoardStore
	core.MediaStore
}

// GetStore returns the session store. Board state lives only for the lifetime of the
// process, so the in-memory backend is the only one.
func GetStore() Store {
	storageType := os.Getenv("STORAGE_TYPE")

	storageField := logrus.Fields{
		"storageType": storageType,
	}

	switch storageType {
	case "", "memory":
	default:
		logrus.WithFields(storageField).Warn("Unsupported storage type, falling back to in-memory")
	}

	storageField["storageType"] = "in-memory"
	logrus.WithFields(storageField).Info("Use storage")
	return NewSessionStore()
}

func NewSessionStore() Store {
	return &sessionStore{
		BoardStore: memory.NewBoardStore(),
		MediaStore: memory.NewMediaStore(),
	}
}
