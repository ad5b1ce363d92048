package ernerr_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ddexkit/erncore/ernerr"
)

func TestError_ErrorIncludesPathPositionContextAndCause(t *testing.T) {
	cause := errors.New("unexpected token")
	e := ernerr.New(ernerr.InvalidXML, "parse failed").WithPath("/ReleaseList/Release[1]").WithPos(3, 7, "<Release>")
	e.Err = cause

	msg := e.Error()
	assert.Contains(t, msg, string(ernerr.InvalidXML))
	assert.Contains(t, msg, "/ReleaseList/Release[1]")
	assert.Contains(t, msg, "line 3, col 7")
	assert.Contains(t, msg, "<Release>")
	assert.Contains(t, msg, "unexpected token")
}

func TestError_WithPosTruncatesLongContext(t *testing.T) {
	e := ernerr.New(ernerr.InvalidXML, "oops")
	long := strings.Repeat("x", 200)
	e2 := e.WithPos(1, 1, long)
	assert.Len(t, e2.Context, 80)
}

func TestError_IsMatchesByCodeNotIdentity(t *testing.T) {
	a := ernerr.New(ernerr.ReferenceError, "dangling ref")
	b := ernerr.New(ernerr.ReferenceError, "a different message")
	assert.True(t, errors.Is(a, b))

	c := ernerr.New(ernerr.StructuralError, "missing header")
	assert.False(t, errors.Is(a, c))
}

func TestError_UnwrapExposesCause(t *testing.T) {
	cause := errors.New("root cause")
	e := ernerr.Wrap(ernerr.InvalidXML, cause)
	assert.ErrorIs(t, e, cause)
	assert.Equal(t, cause, errors.Unwrap(e))
}

func TestIsCode_TrueForMatchingCodeAndFalseOtherwise(t *testing.T) {
	e := ernerr.SecurityViolation(ernerr.KindDoctypeEntity, "DOCTYPE declares an entity")
	wrapped := fmt.Errorf("parsing document: %w", e)

	assert.True(t, ernerr.IsCode(wrapped, ernerr.SecurityViolation))
	assert.False(t, ernerr.IsCode(wrapped, ernerr.ReferenceError))
	assert.False(t, ernerr.IsCode(errors.New("plain error"), ernerr.SecurityViolation))
}

func TestRefError_ReportsKindReferenceAndPath(t *testing.T) {
	e := ernerr.RefError(ernerr.RefResource, "A9", "/ReleaseList/Release[1]/ResourceGroup")
	assert.Equal(t, ernerr.ReferenceError, e.Code)
	assert.Contains(t, e.Error(), "Resource")
	assert.Contains(t, e.Error(), "A9")
	assert.Contains(t, e.Error(), "/ReleaseList/Release[1]/ResourceGroup")
}

func TestWithPath_ReturnsCopyLeavingOriginalUnmodified(t *testing.T) {
	orig := ernerr.New(ernerr.StructuralError, "no releases")
	annotated := orig.WithPath("/ReleaseList")

	assert.Empty(t, orig.Path)
	assert.Equal(t, "/ReleaseList", annotated.Path)
}
