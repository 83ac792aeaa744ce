package versions

import (
	"context"

	"github.com/Maksumys/migrate/changeset"
	"github.com/Maksumys/migrate/versioning"
)

// Add email
func init() {
	versioning.Register(upgrade002, downgrade002)
}

func upgrade002(ctx context.Context, e *changeset.Engine) error {
	return e.AddColumn(ctx, changeset.NewTable("accounts"), changeset.NewColumn("email", changeset.String(128)))
}

func downgrade002(ctx context.Context, e *changeset.Engine) error {
	return e.DropColumn(ctx, changeset.NewTable("accounts"), "email")
}
