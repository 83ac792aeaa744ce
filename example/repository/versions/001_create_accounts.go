package versions

import (
	"context"

	"github.com/Maksumys/migrate/changeset"
	"github.com/Maksumys/migrate/versioning"
)

// Create accounts
func init() {
	versioning.Register(upgrade001, downgrade001, versioning.WithTransaction())
}

func upgrade001(ctx context.Context, e *changeset.Engine) error {
	return e.CreateTable(ctx, changeset.NewTable("accounts",
		changeset.NewColumn("id", changeset.Integer(), changeset.PrimaryKey()),
		changeset.NewColumn("name", changeset.String(40), changeset.NotNull()),
	))
}

func downgrade001(ctx context.Context, e *changeset.Engine) error {
	return e.DropTable(ctx, "accounts")
}
