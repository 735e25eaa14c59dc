package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/infrastructure/monitoring/logging"
	pkgerrors "github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
)

func TestNewMigrator_UnknownDatabaseScheme(t *testing.T) {
	_, err := NewMigrator("file://../../../../migrations", "bogus://localhost/db", logging.NewNopLogger())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.ErrCodeDatabaseError))
}

func TestMigrator_DownRejectsNonPositiveSteps(t *testing.T) {
	mg := &Migrator{logger: logging.NewNopLogger()}
	for _, steps := range []int{0, -1} {
		err := mg.Down(steps)
		assert.True(t, pkgerrors.IsValidation(err), "steps=%d", steps)
	}
}

//Personal.AI order the ending
