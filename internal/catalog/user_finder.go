package catalog

import (
	"lms/internal/ids"
	"lms/internal/pagerange"

	"gorm.io/gorm"
)

// UserSortMethod mirrors the other entities' find-parameter sort enums.
type UserSortMethod int

const (
	UserSortNone UserSortMethod = iota
	UserSortID
	UserSortLoginName
)

type UserFindParameters struct {
	SortMethod UserSortMethod
	Range      pagerange.Range
}

// FindUser is the single-row lookup by id.
func FindUser(tx *Tx, id ids.Id[ids.UserKind]) (*User, error) {
	return findByID[User](tx, id)
}

// FindUserByLoginName looks a user up by their login name, case
// sensitively: Subsonic login names are opaque tokens, not display
// text, so no COLLATE NOCASE matching applies here.
func FindUserByLoginName(tx *Tx, loginName string) (*User, error) {
	tx.assertRead()

	var user User
	err := tx.db.First(&user, "login_name = ?", loginName).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// FindUsers streams matches through visitor.
func FindUsers(tx *Tx, params UserFindParameters, visitor func(*User) error) error {
	tx.assertRead()

	q := tx.db.Table("users")
	switch params.SortMethod {
	case UserSortID:
		q = q.Order("id")
	case UserSortLoginName:
		q = q.Order("login_name COLLATE NOCASE")
	}

	q = q.Offset(int(params.Range.Offset))
	if params.Range.HasLimit() {
		q = q.Limit(int(params.Range.InternalFetchSize()))
	}

	rows, err := q.Rows()
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var u User
		if err := tx.db.ScanRows(rows, &u); err != nil {
			return err
		}
		if err := visitor(&u); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CreateUser inserts a new user row.
func CreateUser(tx *Tx, u *User) error {
	tx.assertWrite()
	return tx.db.Create(u).Error
}

// SaveUser persists changes to an existing user row.
func SaveUser(tx *Tx, u *User) error {
	tx.assertWrite()
	return tx.db.Save(u).Error
}

// DeleteUser removes a user row by id.
func DeleteUser(tx *Tx, id ids.Id[ids.UserKind]) error {
	tx.assertWrite()
	return tx.db.Delete(&User{}, "id = ?", id.Raw()).Error
}
