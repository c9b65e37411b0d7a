package appfs

import "embed"

// FS holds the SQL migrations, email templates and other static assets.
//go:embed migrations/*.sql assets/templates/email/* assets/common-passwords.txt
var FS embed.FS
