package service

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/auth"
	"github.com/mmynk/settleup/internal/ledger"
	"github.com/mmynk/settleup/internal/middleware"
	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// connectError maps ledger and storage errors onto Connect codes.
// Errors that already carry a code pass through unchanged.
func connectError(err error) *connect.Error {
	var connectErr *connect.Error
	if errors.As(err, &connectErr) {
		return connectErr
	}

	switch {
	case errors.Is(err, ledger.ErrSplitMismatch),
		errors.Is(err, ledger.ErrInvalidSplitAmount),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidPercentages),
		errors.Is(err, ledger.ErrInvalidMode),
		errors.Is(err, models.ErrSelfSettlement),
		errors.Is(err, models.ErrEntryAmount),
		errors.Is(err, models.ErrEntryParty):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, ledger.ErrGroupNotFound), errors.Is(err, storage.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, ledger.ErrMemberNotInGroup):
		return connect.NewError(connect.CodePermissionDenied, err)
	case errors.Is(err, storage.ErrConflict):
		return connect.NewError(connect.CodeAborted, err)
	case errors.Is(err, storage.ErrInvalidTransition):
		return connect.NewError(connect.CodeFailedPrecondition, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func invalidArgument(format string, args ...any) *connect.Error {
	return connect.NewError(connect.CodeInvalidArgument, fmt.Errorf(format, args...))
}

// callerID returns the authenticated user set by the auth interceptor.
func callerID(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// groupForMember loads a group and checks that userID belongs to it.
func groupForMember(ctx context.Context, groups storage.GroupStore, groupID, userID string) (*models.Group, error) {
	if groupID == "" {
		return nil, invalidArgument("group_id required")
	}
	group, err := groups.GetGroup(ctx, groupID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrGroupNotFound, groupID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}
	if !group.HasMember(userID) {
		return nil, fmt.Errorf("%w: %s", ledger.ErrMemberNotInGroup, userID)
	}
	return group, nil
}

// pageParams normalizes a requested page and limit.
func pageParams(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = storage.DefaultPageSize
	}
	if limit > storage.MaxPageSize {
		limit = storage.MaxPageSize
	}
	return page, limit
}

// displayNames resolves user IDs to display names. Unknown IDs are left out.
func displayNames(ctx context.Context, users storage.UserStore, ids []string) (map[string]string, error) {
	found, err := users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	names := make(map[string]string, len(found))
	for id, u := range found {
		names[id] = u.DisplayName
	}
	return names, nil
}
