package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/settleup/internal/models"
	"github.com/mmynk/settleup/internal/storage"
)

// CreateGroup persists a new group with its members.
// The creator is always added as a member.
func (s *SQLiteStore) CreateGroup(ctx context.Context, group *models.Group) error {
	if group.ID == "" {
		group.ID = uuid.New().String()
	}
	if group.CreatedAt == 0 {
		group.CreatedAt = time.Now().Unix()
	}
	if group.CreatedBy != "" && !group.HasMember(group.CreatedBy) {
		group.Members = append([]string{group.CreatedBy}, group.Members...)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO groups (id, name, created_by, created_at) VALUES (?, ?, ?, ?)",
		group.ID, group.Name, group.CreatedBy, group.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert group: %w", err)
	}

	if err := insertMembers(ctx, tx, group.ID, group.Members, group.CreatedAt); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetGroup retrieves a group by ID, including its members in join order.
func (s *SQLiteStore) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	group := &models.Group{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_by, created_at FROM groups WHERE id = ?",
		groupID,
	).Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get group: %w", err)
	}

	members, err := s.membersOf(ctx, []string{groupID})
	if err != nil {
		return nil, err
	}
	group.Members = members[groupID]
	return group, nil
}

// ListGroupsForUser retrieves every group the user is a member of, newest first.
func (s *SQLiteStore) ListGroupsForUser(ctx context.Context, userID string) ([]*models.Group, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT g.id, g.name, g.created_by, g.created_at
		 FROM groups g JOIN group_members m ON m.group_id = g.id
		 WHERE m.user_id = ?
		 ORDER BY g.created_at DESC, g.id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	var groups []*models.Group
	var ids []string
	for rows.Next() {
		group := &models.Group{}
		if err := rows.Scan(&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan group: %w", err)
		}
		groups = append(groups, group)
		ids = append(ids, group.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate groups: %w", err)
	}

	members, err := s.membersOf(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		g.Members = members[g.ID]
	}
	return groups, nil
}

// AddGroupMembers adds users to an existing group. Users already in the group are skipped.
func (s *SQLiteStore) AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = ?", groupID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("group %s: %w", groupID, storage.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check group existence: %w", err)
	}

	if err := insertMembers(ctx, tx, groupID, userIDs, time.Now().Unix()); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func insertMembers(ctx context.Context, tx execer, groupID string, userIDs []string, joinedAt int64) error {
	for _, userID := range userIDs {
		_, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO group_members (group_id, user_id, joined_at) VALUES (?, ?, ?)",
			groupID, userID, joinedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert group member: %w", err)
		}
	}
	return nil
}

// membersOf loads the member lists of the given groups in insertion order.
func (s *SQLiteStore) membersOf(ctx context.Context, groupIDs []string) (map[string][]string, error) {
	members := make(map[string][]string, len(groupIDs))
	if len(groupIDs) == 0 {
		return members, nil
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT group_id, user_id FROM group_members WHERE group_id IN ("+placeholders(len(groupIDs))+") ORDER BY rowid",
		stringArgs(groupIDs)...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get group members: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var groupID, userID string
		if err := rows.Scan(&groupID, &userID); err != nil {
			return nil, fmt.Errorf("failed to scan group member: %w", err)
		}
		members[groupID] = append(members[groupID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate group members: %w", err)
	}
	return members, nil
}
