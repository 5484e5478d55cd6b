package svn

import "os"

// writeTempFile spills content to a temporary file for svnmucc's `put`
// command, which reads new file content from disk rather than stdin.
func writeTempFile(content []byte) (string, error) {
	f, err := os.CreateTemp("", "vcsserver-svn-put-*")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := f.Write(content); err != nil {
		return "", err
	}
	return f.Name(), nil
}
