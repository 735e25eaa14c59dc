package handlers

import (
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aonawunmi/New-MinRisk-sub016/internal/testutil"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/errors"
	"github.com/aonawunmi/New-MinRisk-sub016/pkg/types/common"
)

func TestWriteAppError_MapsCodes(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{errors.New(errors.ErrCodeAlertNotFound, "intelligence alert not found"), http.StatusNotFound, "ALR_001"},
		{errors.NewValidation("bad %s", "input"), http.StatusBadRequest, "COMMON_010"},
		{errors.New(errors.ErrCodePeriodAlreadyCommitted, "period already committed"), http.StatusConflict, "PRD_003"},
		{errors.New(errors.ErrCodeRiskVersionConflict, "stale"), http.StatusConflict, "RSK_002"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		writeAppError(w, nil, tc.err)
		assert.Equal(t, tc.status, w.Code)
		assert.Equal(t, tc.code, decode[ErrorResponse](t, w).Error.Code)
	}
}

func TestWriteAppError_MasksServerErrors(t *testing.T) {
	log := testutil.NewMockLogger()
	w := httptest.NewRecorder()
	writeAppError(w, log, errors.Wrap(stderrors.New("pq: password authentication failed"), errors.ErrCodeDatabaseError, "query failed"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "password")
	assert.True(t, log.HasMessage("error", "Request failed"))

	w = httptest.NewRecorder()
	writeAppError(w, log, stderrors.New("plain failure"))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "plain failure")
}

func TestWriteBatch(t *testing.T) {
	res := common.NewBatchResult()
	res.Succeed()
	res.Fail("a-2", stderrors.New("boom"))
	w := httptest.NewRecorder()
	writeBatch(w, res)
	assert.Equal(t, http.StatusOK, w.Code)

	res = common.NewBatchResult()
	res.Fail("a-1", stderrors.New("boom"))
	w = httptest.NewRecorder()
	writeBatch(w, res)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"itemId":"a-1"`)
}

func TestDecodeJSON(t *testing.T) {
	var dst struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"x"}`))
	require.NoError(t, decodeJSON(httptest.NewRecorder(), r, 0, &dst))
	assert.Equal(t, "x", dst.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"`+strings.Repeat("x", 64)+`"}`))
	err := decodeJSON(httptest.NewRecorder(), r, 16, &dst)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	err = decodeJSON(httptest.NewRecorder(), r, 0, &dst)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"nom":"x"}`))
	err = decodeJSON(httptest.NewRecorder(), r, 0, &dst)
	assert.True(t, errors.IsCode(err, errors.ErrCodeBadRequest))
}

func TestParsePaginationAndQueryList(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=3&page_size=9999&status=OPEN,%20MONITORING&status=CLOSED", nil)
	p := parsePagination(r)
	assert.Equal(t, 3, p.Page)
	assert.Equal(t, common.MaxPageSize, p.PageSize)
	assert.Equal(t, []string{"OPEN", "MONITORING", "CLOSED"}, queryList(r, "status"))

	r = httptest.NewRequest(http.MethodGet, "/?page=-1", nil)
	p = parsePagination(r)
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, common.DefaultPageSize, p.PageSize)
}

//Personal.AI order the ending
