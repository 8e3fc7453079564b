package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"campus-community/src/models"
)

// ErrSlugTaken is returned when another group already owns the slug.
var ErrSlugTaken = errors.New("group slug already in use")

const uniqueViolation = "23505"

// GroupRecord is a stored group row, before any viewer projection.
type GroupRecord struct {
	ID          string
	Slug        string
	Name        string
	Description string
	Icon        *string
	Type        models.GroupType
	InviteToken *string
	OwnerID     string
	CreatedAt   int64
	UpdatedAt   int64
}

// ProfileUpdate is the editable part of a group row.
type ProfileUpdate struct {
	Name        string
	Description string
	Icon        *string
	Slug        string
	UpdatedAt   int64
}

type GroupRepo struct {
	pool *pgxpool.Pool
}

func NewGroupRepo(pool *pgxpool.Pool) *GroupRepo {
	return &GroupRepo{pool: pool}
}

const groupColumns = `group_id, slug, name, description, icon, group_type, invite_token, owner_id, created_at, updated_at`

func scanGroup(row pgx.Row) (GroupRecord, error) {
	var g GroupRecord
	var groupType string
	if err := row.Scan(&g.ID, &g.Slug, &g.Name, &g.Description, &g.Icon, &groupType,
		&g.InviteToken, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return GroupRecord{}, err
	}
	g.Type = models.GroupType(groupType)
	return g, nil
}

func (r *GroupRepo) UpsertUser(ctx context.Context, user models.PublicUser) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO users (user_id, name, username, avatar, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET name = EXCLUDED.name,
			username = EXCLUDED.username,
			avatar = EXCLUDED.avatar
	`, user.ID, user.Name, user.Username, user.Avatar, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// CreateGroup inserts the group and its owner membership in one transaction.
func (r *GroupRepo) CreateGroup(ctx context.Context, group GroupRecord) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO groups (`+groupColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, group.ID, group.Slug, group.Name, group.Description, group.Icon, string(group.Type),
			group.InviteToken, group.OwnerID, group.CreatedAt, group.UpdatedAt)
		if err != nil {
			if isUniqueViolation(err, "groups_slug_key") {
				return ErrSlugTaken
			}
			return fmt.Errorf("insert group: %w", err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO group_members (group_id, user_id, role_name, added_at, added_by)
			VALUES ($1, $2, $3, $4, $2)
		`, group.ID, group.OwnerID, models.RoleOwner, group.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert owner membership: %w", err)
		}
		return nil
	})
}

func (r *GroupRepo) GetGroup(ctx context.Context, groupID string) (GroupRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE group_id = $1`, groupID)
	group, err := scanGroup(row)
	if err != nil {
		return GroupRecord{}, fmt.Errorf("load group %s: %w", groupID, err)
	}
	return group, nil
}

func (r *GroupRepo) GetGroupBySlug(ctx context.Context, slug string) (GroupRecord, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+groupColumns+` FROM groups WHERE slug = $1`, slug)
	group, err := scanGroup(row)
	if err != nil {
		return GroupRecord{}, fmt.Errorf("load group by slug: %w", err)
	}
	return group, nil
}

// GetGroupByInviteToken only matches groups that admit members by invite.
func (r *GroupRepo) GetGroupByInviteToken(ctx context.Context, token string) (GroupRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+groupColumns+`
		FROM groups
		WHERE invite_token = $1 AND group_type <> 'PUBLIC'
	`, token)
	group, err := scanGroup(row)
	if err != nil {
		return GroupRecord{}, fmt.Errorf("load group by invite token: %w", err)
	}
	return group, nil
}

func (r *GroupRepo) SlugInUse(ctx context.Context, slug, exceptGroupID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM groups WHERE slug = $1 AND group_id <> $2)
	`, slug, exceptGroupID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("scan slug existence: %w", err)
	}
	return exists, nil
}

func (r *GroupRepo) CountMembers(ctx context.Context, groupID string) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM group_members WHERE group_id = $1`, groupID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count group members: %w", err)
	}
	return count, nil
}

func (r *GroupRepo) GetMemberRole(ctx context.Context, groupID, userID string) (string, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT role_name
		FROM group_members
		WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)

	var roleName string
	if err := row.Scan(&roleName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("scan member role: %w", err)
	}
	return roleName, true, nil
}

func (r *GroupRepo) HasJoinRequest(ctx context.Context, groupID, userID string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM group_join_requests
			WHERE group_id = $1 AND user_id = $2
		)
	`, groupID, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("scan join request existence: %w", err)
	}
	return exists, nil
}

func (r *GroupRepo) ListMembers(ctx context.Context, groupID string) ([]models.PublicUser, error) {
	return r.listUsers(ctx, `
		SELECT u.user_id, u.name, u.username, u.avatar
		FROM group_members gm
		JOIN users u ON u.user_id = gm.user_id
		WHERE gm.group_id = $1
		ORDER BY gm.added_at ASC, u.username ASC
	`, groupID)
}

func (r *GroupRepo) ListJoinRequests(ctx context.Context, groupID string) ([]models.PublicUser, error) {
	return r.listUsers(ctx, `
		SELECT u.user_id, u.name, u.username, u.avatar
		FROM group_join_requests jr
		JOIN users u ON u.user_id = jr.user_id
		WHERE jr.group_id = $1
		ORDER BY jr.created_at ASC, u.username ASC
	`, groupID)
}

func (r *GroupRepo) listUsers(ctx context.Context, query, groupID string) ([]models.PublicUser, error) {
	rows, err := r.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("query group users: %w", err)
	}
	defer rows.Close()

	users := make([]models.PublicUser, 0)
	for rows.Next() {
		var user models.PublicUser
		if err := rows.Scan(&user.ID, &user.Name, &user.Username, &user.Avatar); err != nil {
			return nil, fmt.Errorf("scan group user row: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group users: %w", err)
	}
	return users, nil
}

// InsertJoinRequest records a pending request. A duplicate is a no-op and
// reports created=false.
func (r *GroupRepo) InsertJoinRequest(ctx context.Context, req models.GroupJoinRequest) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO group_join_requests (group_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (group_id, user_id) DO NOTHING
	`, req.GroupID, req.UserID, req.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("insert join request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AcceptJoinRequest turns a pending request into a membership. Only the caller
// whose DELETE removes the request row adds the member; a request already
// resolved reports applied=false.
func (r *GroupRepo) AcceptJoinRequest(ctx context.Context, member models.GroupMember) (bool, error) {
	applied := false
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var userID string
		err := tx.QueryRow(ctx, `
			DELETE FROM group_join_requests
			WHERE group_id = $1 AND user_id = $2
			RETURNING user_id
		`, member.GroupID, member.UserID).Scan(&userID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("resolve join request: %w", err)
		}

		tag, err := tx.Exec(ctx, `
			INSERT INTO group_members (group_id, user_id, role_name, added_at, added_by)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (group_id, user_id) DO NOTHING
		`, member.GroupID, member.UserID, member.RoleName, member.AddedAt, member.AddedBy)
		if err != nil {
			return fmt.Errorf("insert group member: %w", err)
		}
		applied = tag.RowsAffected() == 1
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *GroupRepo) RejectJoinRequest(ctx context.Context, groupID, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM group_join_requests WHERE group_id = $1 AND user_id = $2
	`, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("delete join request: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// RemoveMember never removes the owner row.
func (r *GroupRepo) RemoveMember(ctx context.Context, groupID, userID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM group_members
		WHERE group_id = $1 AND user_id = $2 AND role_name <> 'owner'
	`, groupID, userID)
	if err != nil {
		return false, fmt.Errorf("remove group member: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ReplaceInviteToken swaps the group's token in a single statement so the old
// token stops resolving the moment the new one exists.
func (r *GroupRepo) ReplaceInviteToken(ctx context.Context, groupID, token string, updatedAt int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE groups
		SET invite_token = $2,
			updated_at = $3
		WHERE group_id = $1
	`, groupID, token, updatedAt)
	if err != nil {
		return fmt.Errorf("replace invite token: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("replace invite token for %s: %w", groupID, pgx.ErrNoRows)
	}
	return nil
}

func (r *GroupRepo) UpdateProfile(ctx context.Context, groupID string, update ProfileUpdate) (GroupRecord, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE groups
		SET name = $2,
			description = $3,
			icon = $4,
			slug = $5,
			updated_at = $6
		WHERE group_id = $1
		RETURNING `+groupColumns,
		groupID, update.Name, update.Description, update.Icon, update.Slug, update.UpdatedAt)
	group, err := scanGroup(row)
	if err != nil {
		if isUniqueViolation(err, "groups_slug_key") {
			return GroupRecord{}, ErrSlugTaken
		}
		return GroupRecord{}, fmt.Errorf("update group profile: %w", err)
	}
	return group, nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == uniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
}
