package driver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utkarshk-iitr/Virtual-File-System/internal/catalog"
)

func ptr(s string) *string { return &s }

func testCatalog() catalog.Catalog {
	return catalog.Catalog{
		{Path: "/dev/sda1", UUID: ptr("A1B2-C3D4"), FSType: ptr("vfat"), Name: "sda1"},
		{Path: "/dev/sdb1", Label: ptr("DATA"), UUID: ptr("abc-123"), FSType: ptr("ext4"), Name: "sdb1"},
		{Path: "/dev/sdb2", Label: ptr("My Disk"), UUID: ptr("def-456"), FSType: ptr("exfat"), Name: "sdb2"},
		{Path: "/dev/sdc1", Label: ptr("sdb1"), UUID: ptr("ghi-789"), FSType: ptr("xfs"), Name: "sdc1"},
		{Path: "/dev/sdd1", Label: ptr("DATA"), FSType: ptr("ntfs"), Name: "sdd1"},
		{Path: "/dev/sde1", Label: ptr(""), Name: "sde1"},
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name         string
		id           string
		expectedPath string
		expectedKind MatchKind
	}{
		{"by path", "/dev/sdb1", "/dev/sdb1", MatchPath},
		{"by label", "My Disk", "/dev/sdb2", MatchLabel},
		{"by uuid", "abc-123", "/dev/sdb1", MatchUUID},
		{"by name", "sda1", "/dev/sda1", MatchName},
		{"first match in catalog order", "DATA", "/dev/sdb1", MatchLabel},
		{"name of earlier record beats label of later", "sdb1", "/dev/sdb1", MatchName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Resolve(testCatalog(), tt.id, false)
			require.NoError(t, err)
			assert.Equal(t, tt.expectedPath, m.Record.Path)
			assert.Equal(t, tt.expectedKind, m.Kind)
		})
	}
}

func TestResolve_PrecedenceWithinRecord(t *testing.T) {
	// Every field holds the same value; path wins, then label, then uuid
	c := catalog.Catalog{{Path: "same", Label: ptr("same"), UUID: ptr("same"), Name: "same"}}
	m, err := Resolve(c, "same", false)
	require.NoError(t, err)
	assert.Equal(t, MatchPath, m.Kind)

	c = catalog.Catalog{{Path: "/dev/x", Label: ptr("same"), UUID: ptr("same"), Name: "same"}}
	m, err = Resolve(c, "same", false)
	require.NoError(t, err)
	assert.Equal(t, MatchLabel, m.Kind)

	c = catalog.Catalog{{Path: "/dev/x", UUID: ptr("same"), Name: "same"}}
	m, err = Resolve(c, "same", false)
	require.NoError(t, err)
	assert.Equal(t, MatchUUID, m.Kind)
}

func TestResolve_NoMatch(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{"unknown", "nonexistent"},
		{"case differs", "data"},
		{"partial", "/dev/sdb"},
		{"surrounding space", " DATA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(testCatalog(), tt.id, false)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoMatch)
		})
	}
}

func TestResolve_EmptyCatalog(t *testing.T) {
	_, err := Resolve(nil, "DATA", false)
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolve_Strict(t *testing.T) {
	_, err := Resolve(testCatalog(), "DATA", true)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguous)
	assert.Contains(t, err.Error(), "/dev/sdb1, /dev/sdd1")

	// "sdb1" is a name on one record and a label on another
	_, err = Resolve(testCatalog(), "sdb1", true)
	assert.ErrorIs(t, err, ErrAmbiguous)

	m, err := Resolve(testCatalog(), "abc-123", true)
	require.NoError(t, err)
	assert.Equal(t, "/dev/sdb1", m.Record.Path)
}
