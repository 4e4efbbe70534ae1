package api

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	models "MarketLens/internal/domain/models"
	xhttp "MarketLens/pkg/http"
)

func TestSplitSymbols(t *testing.T) {
	got := splitSymbols(" chile.sn, SQM-B.SN ,,copec.sn ")
	want := []string{"CHILE.SN", "SQM-B.SN", "COPEC.SN"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("splitSymbols = %v, want %v", got, want)
	}

	if out := splitSymbols(""); out != nil {
		t.Fatalf("empty input should yield nil, got %v", out)
	}
}

func TestFetchAppErrorMapping(t *testing.T) {
	cases := []struct {
		kind   models.ErrorKind
		status int
	}{
		{models.ErrNotFound, 404},
		{models.ErrTransient, 502},
		{models.ErrMalformed, 502},
		{models.ErrCacheIO, 500},
	}
	for _, tc := range cases {
		err := fetchAppError(models.NewFetchError(tc.kind, "CHILE.SN", "boom", nil))
		var appErr *xhttp.AppError
		if !errors.As(err, &appErr) {
			t.Fatalf("kind %s: expected AppError, got %T", tc.kind, err)
		}
		if appErr.Status != tc.status {
			t.Fatalf("kind %s: status = %d, want %d", tc.kind, appErr.Status, tc.status)
		}
	}
}

func TestFetchAppErrorPlainError(t *testing.T) {
	err := fetchAppError(fmt.Errorf("correlation needs at least 2 symbols"))
	var appErr *xhttp.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %T", err)
	}
	if appErr.Status != 400 {
		t.Fatalf("plain errors map to 400, got %d", appErr.Status)
	}
}
