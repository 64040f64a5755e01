package faults

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapKeepsKindAndCause(t *testing.T) {
	_, cause := strconv.ParseUint("-1", 10, 64)

	err := TypeCoercion(cause, "tweet_id %q", "-1")

	assert.ErrorIs(t, err, ErrTypeCoercion)
	assert.ErrorIs(t, err, strconv.ErrSyntax)
	assert.NotErrorIs(t, err, ErrAcquisition)
	assert.Contains(t, err.Error(), `tweet_id "-1"`)
}

func TestDataQualityWithoutCause(t *testing.T) {
	err := DataQuality(nil, "duplicate keys: %v", []string{"1"})

	assert.EqualError(t, err, "data quality fault: duplicate keys: [1]")
	assert.Equal(t, ErrDataQuality, Kind(err))
}

func TestKind(t *testing.T) {
	assert.Equal(t, ErrAcquisition, Kind(Acquisition(errors.New("boom"), "reading archive")))
	assert.Nil(t, Kind(errors.New("plain")))
	assert.Nil(t, Kind(nil))
}
