package store

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadCSV(t *testing.T) {
	input := "\ufeffName,Username,City,Category,Followers Count,Price,Notes\n" +
		"Aida,aida.kz,Almaty,beauty; lifestyle,\"12 500\",40000,vip\n" +
		",,,,,,\n" +
		"Dana,dana,Astana,travel,n/a,,\n"

	rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	first := rows[0].Record()
	assert.Equal(t, "Aida", first.Name)
	assert.Equal(t, "aida.kz", first.Handle)
	assert.Equal(t, "beauty; lifestyle", first.Topics)
	require.NotNil(t, first.Followers)
	assert.Equal(t, 12500, *first.Followers)
	assert.NotContains(t, rows[0], "notes")

	second := rows[1].Record()
	assert.Nil(t, second.Followers)
	assert.Nil(t, second.Price)
}

func TestReadCSVRequiresHandle(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("name,city\nAida,Almaty\n"))
	require.Error(t, err)

	_, err = ReadCSV(strings.NewReader(""))
	require.Error(t, err)
}
