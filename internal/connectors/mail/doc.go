// Package mail provides the scanner for local mail stores: mbox files and
// Maildir folders (including Maildir++ subfolders).
//
// Every message is one item. Item paths have the form
//
//	mailbox#folder#key
//
// where mailbox is the absolute path of the mbox file or Maildir root, folder
// is the slash-separated folder name (empty for the top level) and key is
// stable across flag changes and unrelated deletions.
package mail
