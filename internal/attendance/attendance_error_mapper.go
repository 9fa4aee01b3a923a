package attendance

import (
	"errors"
	"strings"

	attendanceerrors "github.com/Project-Zedd/rotc-system-final/internal/attendance/errors"
	"github.com/Project-Zedd/rotc-system-final/internal/shared/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// mapRepositoryError translates Postgres constraint violations into domain
// errors. ManualEntry takes an admin-supplied cadet_id, so the roster FK is
// the first place a bad id surfaces.
func mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return attendanceerrors.ErrRecordNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23503" && pgErr.ConstraintName == "fk_attendance_cadet" {
			return attendanceerrors.ErrCadetNotFound
		}
	}

	errMsg := strings.ToLower(err.Error())
	if strings.Contains(errMsg, "violates foreign key") && strings.Contains(errMsg, "fk_attendance_cadet") {
		return attendanceerrors.ErrCadetNotFound
	}

	return apperror.Storage(err)
}
