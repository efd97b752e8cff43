package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/harentsoaR/auc-api/internal/blob"
)

// ErrInvalidAvatarName is returned when the client-supplied name cannot be
// used as a file name.
var ErrInvalidAvatarName = errors.New("invalid avatar name")

var avatarNameRegex = regexp.MustCompile(`^[A-Za-z0-9@._+-]+$`)

const (
	maxAvatarNameLength = 254
	avatarExt           = ".jpg"
)

// AvatarService turns an uploaded profile picture into a stored blob.
type AvatarService struct {
	sink blob.Sink
}

func NewAvatarService(sink blob.Sink) *AvatarService {
	return &AvatarService{sink: sink}
}

// AvatarKey maps a client-supplied name (usually the user's email) to the
// blob key and the relative URL recorded on the user.
func AvatarKey(name string) (string, error) {
	if name == "" || len(name) > maxAvatarNameLength {
		return "", ErrInvalidAvatarName
	}
	if !avatarNameRegex.MatchString(name) || strings.HasPrefix(name, ".") || strings.Contains(name, "..") {
		return "", ErrInvalidAvatarName
	}
	return name + avatarExt, nil
}

// Save writes the picture and returns its relative URL.
func (s *AvatarService) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	key, err := AvatarKey(name)
	if err != nil {
		return "", err
	}
	if err := s.sink.Put(ctx, key, r, size, contentType); err != nil {
		return "", fmt.Errorf("failed to store avatar %s: %w", key, err)
	}
	return key, nil
}
