package repository

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AvatarBucket is the bucket profile pictures live in.
const AvatarBucket = "avatars"

// Options configures the data service.
type Options struct {
	DSN        string
	StorageDir string
	PublicURL  string
	Log        *logrus.Entry
}

// Client is the handle every store and view receives. There is no package
// level client; build one with Open and pass it down.
type Client struct {
	DB         *gorm.DB
	Feed       *Feed
	Users      *UserRepository
	Tasks      *TaskRepository
	Categories *CategoryRepository
	Settings   *SettingsRepository
	Profiles   *ProfileRepository
	Avatars    *Bucket
}

func Open(opts Options) (*Client, error) {
	db, err := NewDB(opts.DSN, opts.Log)
	if err != nil {
		return nil, err
	}
	return NewClient(db, opts.StorageDir, opts.PublicURL), nil
}

// NewClient wires repositories around an open database.
func NewClient(db *gorm.DB, storageDir, publicURL string) *Client {
	feed := NewFeed()
	return &Client{
		DB:         db,
		Feed:       feed,
		Users:      NewUserRepository(db),
		Tasks:      NewTaskRepository(db, feed),
		Categories: NewCategoryRepository(db, feed),
		Settings:   NewSettingsRepository(db, feed),
		Profiles:   NewProfileRepository(db, feed),
		Avatars:    NewBucket(storageDir, AvatarBucket, publicURL),
	}
}

func (c *Client) Close() error {
	sqlDB, err := c.DB.DB()
	if err != nil {
		return fmt.Errorf("close db: %w", err)
	}
	return sqlDB.Close()
}
