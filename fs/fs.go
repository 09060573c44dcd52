package appfs

import "embed"

// FS holds the files shipped inside the binaries: SQL migrations, email templates and the common passwords list.
//
//go:embed migrations/*.sql templates/email/* common-passwords.txt.gz
var FS embed.FS
