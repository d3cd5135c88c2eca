// Copyright (C) 2025 Dyne.org foundation
// designed, written and maintained by Denis Roio <jaromil@dyne.org>
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "multimodel/internal/errors"
	"multimodel/internal/paths"
)

const memRoot = "/mmtest"

func newMemService(t *testing.T, limits Limits) (*Service, afero.Fs) {
	t.Helper()
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll(memRoot, 0o755))
	return NewService(mem, paths.DefaultSandbox(), limits), mem
}

func TestListSortsDirectoriesFirstCaseInsensitive(t *testing.T) {
	svc, mem := newMemService(t, DefaultLimits())
	require.NoError(t, mem.MkdirAll(memRoot+"/beta", 0o755))
	require.NoError(t, mem.MkdirAll(memRoot+"/Alpha", 0o755))
	require.NoError(t, afero.WriteFile(mem, memRoot+"/b.txt", []byte("bb"), 0o644))
	require.NoError(t, afero.WriteFile(mem, memRoot+"/a.txt", []byte("a"), 0o644))
	require.NoError(t, afero.WriteFile(mem, memRoot+"/A.txt", []byte("AAAA"), 0o644))
	require.NoError(t, afero.WriteFile(mem, memRoot+"/.hidden", []byte("secret"), 0o644))

	entries, err := svc.List(context.Background(), memRoot, false)
	require.NoError(t, err)

	assert.Equal(t, []Entry{
		{Name: "Alpha", Kind: KindDirectory},
		{Name: "beta", Kind: KindDirectory},
		{Name: "A.txt", Kind: KindFile, Size: 4},
		{Name: "a.txt", Kind: KindFile, Size: 1},
		{Name: "b.txt", Kind: KindFile, Size: 2},
	}, entries)
}

func TestListShowHiddenIncludesDotfiles(t *testing.T) {
	svc, mem := newMemService(t, DefaultLimits())
	require.NoError(t, afero.WriteFile(mem, memRoot+"/.env", []byte("X=1"), 0o644))
	require.NoError(t, mem.MkdirAll(memRoot+"/.git", 0o755))

	hidden, err := svc.List(context.Background(), memRoot, false)
	require.NoError(t, err)
	assert.Empty(t, hidden)

	all, err := svc.List(context.Background(), memRoot, true)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: ".git", Kind: KindDirectory},
		{Name: ".env", Kind: KindFile, Size: 3},
	}, all)
}

func TestListEmptyDirectory(t *testing.T) {
	svc, _ := newMemService(t, DefaultLimits())
	entries, err := svc.List(context.Background(), memRoot, false)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Len(t, entries, 0)
}

func TestListErrors(t *testing.T) {
	svc, mem := newMemService(t, DefaultLimits())
	require.NoError(t, afero.WriteFile(mem, memRoot+"/file.txt", []byte("x"), 0o644))

	_, err := svc.List(context.Background(), memRoot+"/missing", false)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotFound), "got %v", err)
	assert.Contains(t, err.Error(), "does not exist")

	_, err = svc.List(context.Background(), memRoot+"/file.txt", false)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeNotADirectory), "got %v", err)

	_, err = svc.List(context.Background(), "/etc", false)
	assert.True(t, apperrors.IsCode(err, apperrors.CodeAccessDenied), "got %v", err)
}

func TestListRejectsBeforeTouchingFileSystem(t *testing.T) {
	mem := afero.NewMemMapFs()
	require.NoError(t, mem.MkdirAll("/etc", 0o755))
	svc := NewService(mem, paths.DefaultSandbox(), DefaultLimits())

	_, err := svc.List(context.Background(), "/etc", false)
	require.Error(t, err)
	assert.Equal(t, "Access to system path '/etc' is not allowed", err.Error())
}

func TestListEnforcesEntryLimit(t *testing.T) {
	svc, mem := newMemService(t, Limits{MaxDirectoryEntries: 2})
	for _, name := range []string{"a", "b", "c"} {
		require.NoError(t, afero.WriteFile(mem, memRoot+"/"+name, nil, 0o644))
	}
	_, err := svc.List(context.Background(), memRoot, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "more than 2 entries")
}

func TestListHonorsCancelledContext(t *testing.T) {
	svc, _ := newMemService(t, DefaultLimits())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := svc.List(ctx, memRoot, false)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListFollowsSymlinksOnDisk(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "real"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.bin"), make([]byte, 2048), 0o644))
	if err := os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "linked")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), filepath.Join(dir, "dangling")))

	svc := NewService(nil, nil, DefaultLimits())
	entries, err := svc.List(context.Background(), dir, false)
	require.NoError(t, err)
	assert.Equal(t, []Entry{
		{Name: "linked", Kind: KindDirectory},
		{Name: "real", Kind: KindDirectory},
		{Name: "dangling", Kind: KindFile},
		{Name: "data.bin", Kind: KindFile, Size: 2048},
	}, entries)
}

func TestSortEntriesIsTotal(t *testing.T) {
	entries := []Entry{
		{Name: "b", Kind: KindFile},
		{Name: "B", Kind: KindFile},
		{Name: "Z", Kind: KindDirectory},
		{Name: "a", Kind: KindDirectory},
	}
	SortEntries(entries)
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	assert.Equal(t, []string{"a", "Z", "B", "b"}, names)
}
