package users

import (
	"database/sql"
	"errors"
	"fmt"

	"labstock/internal/repository"
	custom_error "labstock/pkg/errors"
	"labstock/pkg/models"

	"github.com/doug-martin/goqu/v9"
	"github.com/lib/pq"
)

type UserRepository interface {
	PersistUser(req models.CreateUserRequest, hashedPassword []byte) (int, error)
	GetUser(id int) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetUsers() ([]models.User, error)
	UpdateUser(id int, changes *models.UserChanges) error
	Exists(userID int) (bool, error)
}

type userRepositoryImpl struct {
	repository *repository.Repository
}

func NewRepository(r *repository.Repository) UserRepository {
	return &userRepositoryImpl{repository: r}
}

func (r *userRepositoryImpl) PersistUser(req models.CreateUserRequest, hashedPassword []byte) (int, error) {
	var id int
	query := r.repository.GoquDBWrapper.Insert("users").
		Rows(goqu.Record{
			"email":         req.Email,
			"name":          req.Name,
			"password_hash": string(hashedPassword),
			"role":          req.Role,
			"is_active":     true,
		}).
		Returning("id")

	if _, err := query.Executor().ScanVal(&id); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return 0, &custom_error.DuplicateKeyError{Field: "email", Value: req.Email}
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	return id, nil
}

func (r *userRepositoryImpl) GetUser(id int) (*models.User, error) {
	var user models.User
	query := r.repository.GoquDBWrapper.
		Select("id", "email", "name", "role", "is_active").
		From("users").
		Where(goqu.Ex{"id": id})

	found, err := query.Executor().ScanStruct(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if !found {
		return nil, custom_error.ErrNotFound
	}

	return &user, nil
}

func (r *userRepositoryImpl) GetByEmail(email string) (*models.User, error) {
	var user models.User
	query := r.repository.GoquDBWrapper.
		Select("id", "email", "name", "role", "is_active").
		From("users").
		Where(goqu.Ex{"email": email})

	found, err := query.Executor().ScanStruct(&user)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if !found {
		return nil, custom_error.ErrNotFound
	}

	return &user, nil
}

func (r *userRepositoryImpl) GetUsers() ([]models.User, error) {
	var users []models.User
	query := r.repository.GoquDBWrapper.
		Select("id", "email", "name", "role", "is_active").
		From("users").
		Order(goqu.I("name").Asc())

	if err := query.Executor().ScanStructs(&users); err != nil {
		return nil, fmt.Errorf("error executing SQL statement: %w", err)
	}

	return users, nil
}

func (r *userRepositoryImpl) UpdateUser(id int, changes *models.UserChanges) error {
	record := goqu.Record{}
	if changes.Name != nil {
		record["name"] = *changes.Name
	}
	if changes.PasswordHash != nil {
		record["password_hash"] = *changes.PasswordHash
	}
	if changes.Role != nil {
		record["role"] = *changes.Role
	}
	if changes.IsActive != nil {
		record["is_active"] = *changes.IsActive
	}
	if len(record) == 0 {
		return nil
	}

	query := r.repository.GoquDBWrapper.Update("users").
		Set(record).
		Where(goqu.Ex{"id": id})

	result, err := query.Executor().Exec()
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return custom_error.ErrNotFound
	}

	return nil
}

// Exists answers assignee lookups for lifecycle transitions. Deactivated
// accounts cannot receive equipment.
func (r *userRepositoryImpl) Exists(userID int) (bool, error) {
	var id int
	query := r.repository.GoquDBWrapper.
		Select("id").
		From("users").
		Where(goqu.Ex{"id": userID, "is_active": true})

	found, err := query.Executor().ScanVal(&id)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("failed to check user: %w", err)
	}

	return found, nil
}
