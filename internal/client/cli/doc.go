// Package cli implements blobctl, the blobvault command-line client.
//
// With a command on the command line blobctl runs it and exits; without one
// it reads commands from standard input, one per line, until "exit".
//
//	list <record>                         list files of a data record
//	upload <record> <path>                store a file inline
//	upload-big <record> <path>            store a file as a large object
//	replace <record> <file> <path> [big]  overwrite an existing file
//	download <record> <file> <dest|->     fetch a file to dest or stdout
//	delete <record> <file>                delete a file
package cli
