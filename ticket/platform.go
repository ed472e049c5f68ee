package ticket

import (
	"context"

	"nuvix-tickets/transcript"
)

// Access is the level written into a container permission overwrite.
type Access int

const (
	// AccessClear removes the explicit overwrite entirely. The target
	// reverts to the category's default visibility; this is deliberately
	// not an explicit deny.
	AccessClear Access = iota
	// AccessDefaultHidden denies viewing for the default role.
	AccessDefaultHidden
	// AccessDefaultHiddenLocked denies viewing and posting for the default
	// role; used while a ticket is locked.
	AccessDefaultHiddenLocked
	// AccessParticipant grants view, post, attach and history.
	AccessParticipant
	// AccessStaff grants participant access plus message management.
	AccessStaff
)

// Grant addresses one actor or role inside a container. An empty TargetID
// addresses the platform's default (everyone) role.
type Grant struct {
	TargetID string
	Role     bool
	Access   Access
}

// File is an attachment uploaded with a message.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is outbound content for a container or private channel.
type Message struct {
	Content string
	Files   []File
}

// Platform is the boundary to the hosting chat platform. Every call may
// suspend on network I/O; none are retried here.
type Platform interface {
	CreateContainer(ctx context.Context, name, parentID string, grants []Grant) (string, error)
	DeleteContainer(ctx context.Context, containerID string) error
	SetContainerAccess(ctx context.Context, containerID string, grant Grant) error
	RenameContainer(ctx context.Context, containerID, name string) error
	MoveContainer(ctx context.Context, containerID, parentID string) error
	ContainerTopic(ctx context.Context, containerID string) (string, error)
	SetContainerTopic(ctx context.Context, containerID, topic string) error
	PostMessage(ctx context.Context, containerID string, msg Message) (string, error)
	EditMessage(ctx context.Context, containerID, messageID, content string) error
	// FetchHistory returns up to limit records, oldest first.
	FetchHistory(ctx context.Context, containerID string, limit int) ([]transcript.Message, error)
	SendPrivateMessage(ctx context.Context, actorID string, msg Message) error
}
