package file

import (
	"context"
	"fmt"
	"os"

	"github.com/vkick/wabridge/pkg/contacts"
	"github.com/vkick/wabridge/pkg/storage/repository"
)

// FileStorage implements the storage.Storage interface using file-based
// persistence under a single workspace directory.
type FileStorage struct {
	workspacePath string
	contactsStore *contacts.Store
	contactsRepo  repository.ContactsRepository
	cronRepo      repository.CronRepository
}

// NewFileStorage creates a new file-based storage instance.
func NewFileStorage(filePath string) (*FileStorage, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path is required for file-based storage")
	}

	contactsStore := contacts.NewStore(filePath)

	fs := &FileStorage{
		workspacePath: filePath,
		contactsStore: contactsStore,
	}

	fs.contactsRepo = NewContactsRepository(contactsStore)
	fs.cronRepo = NewCronRepository(filePath)

	return fs, nil
}

// Connect initializes the file-based storage.
func (fs *FileStorage) Connect(ctx context.Context) error {
	return os.MkdirAll(fs.workspacePath, 0755)
}

// Close closes the file-based storage (no-op for files).
func (fs *FileStorage) Close() error {
	return nil
}

// Contacts returns the contacts repository.
func (fs *FileStorage) Contacts() repository.ContactsRepository {
	return fs.contactsRepo
}

// Cron returns the cron repository.
func (fs *FileStorage) Cron() repository.CronRepository {
	return fs.cronRepo
}

// Ping checks if the workspace directory is accessible.
func (fs *FileStorage) Ping(ctx context.Context) error {
	_, err := os.Stat(fs.workspacePath)
	return err
}
