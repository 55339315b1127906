package api

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFileEntry_IsExternalRef(t *testing.T) {
	tests := []struct {
		name     string
		typeflag byte
		expected bool
	}{
		{name: "regular", typeflag: TypeRegular, expected: false},
		{name: "symlink", typeflag: TypeSymlink, expected: false},
		{name: "directory", typeflag: TypeDirectory, expected: false},
		{name: "external ref", typeflag: TypeExternalRef, expected: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &FileEntry{Header: TarHeader{Typeflag: tt.typeflag}}
			require.Equal(t, tt.expected, f.IsExternalRef())
		})
	}
}

func TestProcessHandle_Done(t *testing.T) {
	p := &ProcessHandle{FID: "1"}
	require.False(t, p.Done())

	status := 0
	p.Status = &status
	require.True(t, p.Done())
}
