// Package ctl implements the operator commands behind cmd/authctl. They run
// directly against the database and bypass the HTTP surface.
package ctl

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aussiebroadwan/techauth/internal/auth/service"
	"github.com/aussiebroadwan/techauth/internal/auth/store"
)

// ErrUsage is returned for an unknown command or bad flags.
var ErrUsage = errors.New("usage error")

const usage = `usage: authctl <command> [flags]

commands:
  seed-project       create an active project and print its API credentials
  create-invitation  mint a project invitation key
  verify-user        mark an account's email as verified
  promote-admin      grant (or with -revoke, remove) global admin
  ban-user           ban (or with -lift, unban) an account
`

// Commands wires the services the operator commands need.
type Commands struct {
	Store       store.Store
	Projects    *service.ProjectService
	Invitations *service.InvitationService
	Users       *service.UserAdminService
}

// Run dispatches args[0] to a command and writes its result to out.
func (c *Commands) Run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return ErrUsage
	}

	name, rest := args[0], args[1:]
	switch name {
	case "seed-project":
		return c.seedProject(ctx, rest, out)
	case "create-invitation":
		return c.createInvitation(ctx, rest, out)
	case "verify-user":
		return c.verifyUser(ctx, rest, out)
	case "promote-admin":
		return c.promoteAdmin(ctx, rest, out)
	case "ban-user":
		return c.banUser(ctx, rest, out)
	case "help", "-h", "--help":
		fmt.Fprint(out, usage)
		return nil
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}
}

func newFlagSet(name string, out io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

func parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

func required(fs *flag.FlagSet, name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s requires -%s", ErrUsage, fs.Name(), name)
	}
	return nil
}

func (c *Commands) seedProject(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("seed-project", out)
	name := fs.String("name", "", "project display name")
	slug := fs.String("slug", "", "unique project slug ([a-z0-9-])")
	origins := fs.String("origins", "", "comma-separated allowed origins")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "name", *name); err != nil {
		return err
	}
	if err := required(fs, "slug", *slug); err != nil {
		return err
	}

	creds, err := c.Projects.Seed(ctx, service.SeedProjectInput{
		Name:           *name,
		Slug:           *slug,
		AllowedOrigins: strings.Split(*origins, ","),
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "project created\n")
	fmt.Fprintf(out, "  id:         %s\n", creds.Project.ID)
	fmt.Fprintf(out, "  name:       %s\n", creds.Project.Name)
	fmt.Fprintf(out, "  slug:       %s\n", creds.Project.Slug)
	fmt.Fprintf(out, "  api key:    %s\n", creds.APIKey)
	fmt.Fprintf(out, "  api secret: %s\n", creds.APISecret)
	fmt.Fprintf(out, "the api secret is not stored in plaintext and cannot be shown again\n")
	return nil
}

func (c *Commands) createInvitation(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("create-invitation", out)
	creator := fs.String("creator", "", "email of the global admin issuing the invitation")
	email := fs.String("email", "", "bind the invitation to this email (optional)")
	description := fs.String("description", "", "free-form note stored with the invitation")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "creator", *creator); err != nil {
		return err
	}

	admin, err := c.Store.Users().GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(*creator)))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return service.ErrUserNotFound
		}
		return err
	}

	issued, err := c.Invitations.CreateUnbound(ctx, service.CreateInvitationInput{
		CreatedByID: admin.ID,
		Email:       strings.TrimSpace(*email),
		Description: *description,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "invitation created\n")
	fmt.Fprintf(out, "  key:     %s\n", issued.Key)
	if issued.Invitation.Email != "" {
		fmt.Fprintf(out, "  email:   %s\n", issued.Invitation.Email)
	} else {
		fmt.Fprintf(out, "  email:   (any)\n")
	}
	fmt.Fprintf(out, "  expires: %s\n", issued.Invitation.ExpiresAt.UTC().Format(time.RFC3339))
	if issued.Link != "" {
		fmt.Fprintf(out, "  link:    %s\n", issued.Link)
	}
	return nil
}

func (c *Commands) verifyUser(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("verify-user", out)
	email := fs.String("email", "", "account email")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "email", *email); err != nil {
		return err
	}

	user, err := c.Users.MarkVerified(ctx, *email)
	if errors.Is(err, service.ErrAlreadyVerified) {
		fmt.Fprintf(out, "%s is already verified\n", user.Email)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s verified\n", user.Email)
	return nil
}

func (c *Commands) promoteAdmin(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("promote-admin", out)
	email := fs.String("email", "", "account email")
	revoke := fs.Bool("revoke", false, "remove global admin instead of granting it")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "email", *email); err != nil {
		return err
	}

	user, err := c.Users.SetGlobalAdmin(ctx, *email, !*revoke)
	if err != nil {
		return err
	}
	if user.IsGlobalAdmin {
		fmt.Fprintf(out, "%s is now a global admin\n", user.Email)
	} else {
		fmt.Fprintf(out, "%s is no longer a global admin\n", user.Email)
	}
	return nil
}

func (c *Commands) banUser(ctx context.Context, args []string, out io.Writer) error {
	fs := newFlagSet("ban-user", out)
	email := fs.String("email", "", "account email")
	reason := fs.String("reason", "", "reason shown to the user at login")
	lift := fs.Bool("lift", false, "unban instead of ban")
	if err := parse(fs, args); err != nil {
		return err
	}
	if err := required(fs, "email", *email); err != nil {
		return err
	}

	user, err := c.Users.SetBanned(ctx, *email, !*lift, *reason)
	if err != nil {
		return err
	}
	if user.IsBanned {
		fmt.Fprintf(out, "%s banned\n", user.Email)
	} else {
		fmt.Fprintf(out, "%s unbanned\n", user.Email)
	}
	return nil
}
