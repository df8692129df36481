package repository

import (
	"fmt"
	"strings"
)

// Top-level nodes of the key-value tree.
const (
	WhitelistNode  = "whitelistedEmails"
	PendingNode    = "pendingRequests"
	UsersNode      = "users"
	ObjectsNode    = "objects"
	ProducersNode  = "producers"
	RepairsNode    = "profileRepairs"
	RevocationNode = "revokedSessions"
)

func WhitelistPath(key string) string        { return Join(WhitelistNode, key) }
func PendingPath(key string) string          { return Join(PendingNode, key) }
func UserTypePath(accountID string) string   { return Join(UsersNode, accountID, "userType") }
func UserEmailPath(accountID string) string  { return Join(UsersNode, accountID, "email") }
func ObjectPath(id string) string            { return Join(ObjectsNode, id) }
func ProducerPath(id string) string          { return Join(ProducersNode, id) }
func RepairPath(accountID string) string     { return Join(RepairsNode, accountID) }
func RevocationPath(accountID string) string { return Join(RevocationNode, accountID) }

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// ValidatePath rejects paths with empty segments, which would otherwise let
// "users//userType" alias a different node in some backends.
func ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("repository: empty path")
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return fmt.Errorf("repository: path %q has an empty segment", path)
		}
	}
	return nil
}

// LastSegment returns the final segment of path.
func LastSegment(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
