package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDSNFromParts(t *testing.T) {
	assert.Equal(t,
		"host=db user=portal password=s3cret dbname=research port=5433 sslmode=disable",
		DSNFromParts("db", "portal", "s3cret", "research", "5433"))
}
