package mail

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-indexer/internal/core/domain"
)

const mboxFixture = `From alice@example.com Mon Jan 15 10:00:00 2024
From: Alice <alice@example.com>
To: bob@example.com
Subject: First
Date: Mon, 15 Jan 2024 10:00:00 +0000
Message-ID: <first@example.com>

Hello Bob.
>From the archives.

From carol@example.com Tue Jan 16 10:00:00 2024
From: Carol <carol@example.com>
Subject: Second

No message id here.
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func newMaildir(t *testing.T, root string) {
	t.Helper()
	for _, sub := range []string{"cur", "new", "tmp"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, sub), 0755))
	}
}

func mailSource(scopes ...string) domain.Source {
	s := domain.NewSource("mail", domain.SourceKindMail, "Mail")
	s.ScopePaths = scopes
	return s
}

func collect(t *testing.T, src domain.Source) []domain.ScannedItem {
	t.Helper()
	var items []domain.ScannedItem
	for item, err := range New().Scan(context.Background(), src) {
		require.NoError(t, err)
		items = append(items, item)
	}
	return items
}

func TestScanner_Kind(t *testing.T) {
	assert.Equal(t, domain.SourceKindMail, New().Kind())
}

func TestScanner_Mbox(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Inbox")
	writeFile(t, path, mboxFixture)
	src := mailSource(path)

	items := collect(t, src)

	require.Len(t, items, 2)
	for _, item := range items {
		assert.Equal(t, MIMEType, item.MIMEType)
		assert.True(t, strings.HasPrefix(item.Path, path+"##"))
	}
	assert.Equal(t, time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC), items[0].LastModified.UTC())
	assert.Contains(t, items[1].Path, "##off-")

	first, err := New().FetchContent(context.Background(), src, items[0].Path)
	require.NoError(t, err)
	assert.Contains(t, string(first), "Subject: First")
	assert.Contains(t, string(first), "\nFrom the archives.")
	assert.NotContains(t, string(first), "Second")

	second, err := New().FetchContent(context.Background(), src, items[1].Path)
	require.NoError(t, err)
	assert.Contains(t, string(second), "No message id here.")
}

func TestScanner_MboxKeyStableAcrossDeletion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Inbox")
	writeFile(t, path, mboxFixture)
	before := collect(t, mailSource(path))

	// Drop the second message; the first keeps its key.
	writeFile(t, path, mboxFixture[:strings.Index(mboxFixture, "From carol")])
	after := collect(t, mailSource(path))

	require.Len(t, after, 1)
	assert.Equal(t, before[0].Path, after[0].Path)
}

func TestScanner_Maildir(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Mail")
	newMaildir(t, root)
	newMaildir(t, filepath.Join(root, ".Sent"))
	newMaildir(t, filepath.Join(root, ".Lists.golang"))
	writeFile(t, filepath.Join(root, "new", "1700000000.M1.host"), "Subject: Unread\n\nbody\n")
	writeFile(t, filepath.Join(root, "cur", "1700000001.M2.host:2,S"), "Subject: Read\n\nbody\n")
	writeFile(t, filepath.Join(root, ".Sent", "cur", "1700000002.M3.host:2,S"), "Subject: Sent\n\nbody\n")
	writeFile(t, filepath.Join(root, ".Lists.golang", "cur", "1700000003.M4.host:2,"), "Subject: List\n\nbody\n")

	src := mailSource(root)
	items := collect(t, src)

	var got []string
	for _, item := range items {
		got = append(got, item.Path)
	}
	assert.Equal(t, []string{
		ItemPath(root, "", "1700000000.M1.host"),
		ItemPath(root, "", "1700000001.M2.host"),
		ItemPath(root, "Lists/golang", "1700000003.M4.host"),
		ItemPath(root, "Sent", "1700000002.M3.host"),
	}, got)

	data, err := New().FetchContent(context.Background(), src, ItemPath(root, "Sent", "1700000002.M3.host"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Subject: Sent")

	// Flag changes rename the file but keep the key.
	require.NoError(t, os.Rename(
		filepath.Join(root, "new", "1700000000.M1.host"),
		filepath.Join(root, "cur", "1700000000.M1.host:2,S")))
	data, err = New().FetchContent(context.Background(), src, ItemPath(root, "", "1700000000.M1.host"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Subject: Unread")
}

func TestScanner_FolderFilter(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Mail")
	newMaildir(t, root)
	newMaildir(t, filepath.Join(root, ".Sent"))
	writeFile(t, filepath.Join(root, "cur", "a:2,S"), "Subject: A\n\n")
	writeFile(t, filepath.Join(root, ".Sent", "cur", "b:2,S"), "Subject: B\n\n")

	items := collect(t, mailSource(root+"#Sent"))

	require.Len(t, items, 1)
	assert.Equal(t, ItemPath(root, "Sent", "b"), items[0].Path)
}

func TestScanner_DirectoryDiscovery(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Archive"), mboxFixture)
	writeFile(t, filepath.Join(dir, "notes.txt"), "not mail")
	writeFile(t, filepath.Join(dir, "Archive.msf"), "index")
	newMaildir(t, filepath.Join(dir, "Work"))
	writeFile(t, filepath.Join(dir, "Work", "new", "m1"), "Subject: W\n\n")

	items := collect(t, mailSource(dir))

	assert.Len(t, items, 3)
}

func TestScanner_FetchErrors(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Mail")
	newMaildir(t, root)
	src := mailSource(root)

	_, err := New().FetchContent(context.Background(), src, "no-separators")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New().FetchContent(context.Background(), src, ItemPath("/elsewhere", "", "k"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = New().FetchContent(context.Background(), src, ItemPath(root, "", "missing"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = New().FetchContent(context.Background(), src, ItemPath(root, "Nope", "k"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScanner_MboxFetchIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Inbox")
	dup := "From dave@example.com Wed Jan 17 10:00:00 2024\nMessage-ID: <first@example.com>\nSubject: Resent\n\nAgain.\n"
	writeFile(t, path, mboxFixture+"\n"+dup)
	src := mailSource(path)
	items := collect(t, src)
	require.Len(t, items, 3)

	s := New()
	for i, want := range []string{"Subject: First", "No message id here.", "Subject: Resent"} {
		data, err := s.FetchContent(context.Background(), src, items[i].Path)
		require.NoError(t, err)
		assert.Contains(t, string(data), want)
	}
	require.Contains(t, s.indexes, path)
	assert.Len(t, s.indexes[path].offsets, 3)
	indexed := s.indexes[path]

	// A second fetch reuses the index built by the first.
	_, err := s.FetchContent(context.Background(), src, items[0].Path)
	require.NoError(t, err)
	assert.Same(t, indexed, s.indexes[path])

	// Rewriting the file invalidates the index.
	later := "From erin@example.com Thu Jan 18 10:00:00 2024\nMessage-ID: <later@example.com>\nSubject: Later\n\nNew.\n"
	writeFile(t, path, later+"\n"+mboxFixture)
	items = collect(t, src)
	require.Len(t, items, 3)
	data, err := s.FetchContent(context.Background(), src, items[2].Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "No message id here.")
	data, err = s.FetchContent(context.Background(), src, items[1].Path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Subject: First")

	_, err = s.FetchContent(context.Background(), src, ItemPath(path, "", "0123456789abcdef"))
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScanner_FolderWithHash(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Mail")
	newMaildir(t, root)
	newMaildir(t, filepath.Join(root, ".Projects#2024"))
	newMaildir(t, filepath.Join(root, ".100%"))
	writeFile(t, filepath.Join(root, ".Projects#2024", "cur", "m1:2,S"), "Subject: Plan\n\n")
	writeFile(t, filepath.Join(root, ".100%", "new", "m2"), "Subject: Done\n\n")
	src := mailSource(root)

	items := collect(t, src)

	require.Len(t, items, 2)
	assert.Equal(t, ItemPath(root, "100%", "m2"), items[0].Path)
	assert.Equal(t, ItemPath(root, "Projects#2024", "m1"), items[1].Path)
	assert.Equal(t, root+"#Projects%232024#m1", items[1].Path)

	mailbox, folder, key, err := splitPath(items[1].Path)
	require.NoError(t, err)
	assert.Equal(t, root, mailbox)
	assert.Equal(t, "Projects#2024", folder)
	assert.Equal(t, "m1", key)

	for i, want := range []string{"Subject: Done", "Subject: Plan"} {
		data, err := New().FetchContent(context.Background(), src, items[i].Path)
		require.NoError(t, err)
		assert.Contains(t, string(data), want)
	}

	only := collect(t, mailSource(root+"#Projects#2024"))
	require.Len(t, only, 1)
	assert.Equal(t, items[1].Path, only[0].Path)
}

func scanErr(src domain.Source) (int, error) {
	n := 0
	for _, err := range New().Scan(context.Background(), src) {
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func TestScanner_MissingRootFails(t *testing.T) {
	dir := t.TempDir()
	root := filepath.Join(dir, "Mail")
	newMaildir(t, root)
	writeFile(t, filepath.Join(root, "cur", "a:2,S"), "Subject: A\n\n")
	src := mailSource(root)
	require.Len(t, collect(t, src), 1)

	require.NoError(t, os.Rename(root, filepath.Join(dir, "Unmounted")))

	n, err := scanErr(src)
	assert.Zero(t, n)
	assert.ErrorIs(t, err, domain.ErrFetchContent)

	_, err = scanErr(mailSource(filepath.Join(dir, "Inbox")))
	assert.ErrorIs(t, err, domain.ErrFetchContent)
}

func TestScanner_NonMboxFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	writeFile(t, path, "not mail")

	_, err := scanErr(mailSource(path))

	assert.ErrorIs(t, err, domain.ErrFetchContent)
}

func TestScanner_EmptyMboxIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Inbox")
	writeFile(t, path, "")

	assert.Empty(t, collect(t, mailSource(path)))
}

func TestScanner_UnreadableDirectoryFails(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "Archive"), mboxFixture)
	locked := filepath.Join(dir, "Old")
	writeFile(t, filepath.Join(locked, "Archive"), mboxFixture)
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	_, err := scanErr(mailSource(dir))

	assert.ErrorIs(t, err, domain.ErrFetchContent)
}

func TestSplitPath(t *testing.T) {
	mailbox, folder, key, err := splitPath("/m/box#Lists/go#abc")
	require.NoError(t, err)
	assert.Equal(t, "/m/box", mailbox)
	assert.Equal(t, "Lists/go", folder)
	assert.Equal(t, "abc", key)

	_, _, _, err = splitPath("/m/box#abc")
	assert.Error(t, err)
}

func TestUnquoteFrom(t *testing.T) {
	assert.Equal(t, "From x\n", string(unquoteFrom([]byte(">From x\n"))))
	assert.Equal(t, ">From x\n", string(unquoteFrom([]byte(">>From x\n"))))
	assert.Equal(t, "> quoted\n", string(unquoteFrom([]byte("> quoted\n"))))
}
