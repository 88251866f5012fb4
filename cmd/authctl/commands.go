package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/Skotchmaster/jam/internal/repo"
	"github.com/Skotchmaster/jam/internal/service"
)

type app struct {
	out  io.Writer
	open func(ctx context.Context) (*service.AuthService, func(), error)
}

func (a *app) withService(fn func(ctx context.Context, svc *service.AuthService) error) error {
	ctx := context.Background()
	svc, closeFn, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(ctx, svc)
}

type Options struct {
	Prune  PruneCmd  `command:"prune" description:"Delete every token record that has expired"`
	Tokens TokensCmd `command:"tokens" description:"List the tokens recorded for a user"`
	Revoke RevokeCmd `command:"revoke" description:"Revoke or unrevoke a token"`
}

func newOptions(a *app) *Options {
	o := &Options{}
	o.Prune.app = a
	o.Tokens.app = a
	o.Revoke.app = a
	return o
}

type PruneCmd struct {
	app    *app
	Before string `long:"before" description:"RFC 3339 cutoff; defaults to now"`
}

func (c *PruneCmd) Execute(_ []string) error {
	now := time.Now()
	if c.Before != "" {
		t, err := time.Parse(time.RFC3339, c.Before)
		if err != nil {
			return fmt.Errorf("--before: %w", err)
		}
		now = t
	}
	return c.app.withService(func(ctx context.Context, svc *service.AuthService) error {
		n, err := svc.Prune(ctx, now)
		if err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "pruned %d expired tokens\n", n)
		return nil
	})
}

type TokensCmd struct {
	app  *app
	User string `short:"u" long:"user" description:"User identity" required:"true"`
	JSON bool   `long:"json" description:"Print JSON instead of a table"`
}

func (c *TokensCmd) Execute(_ []string) error {
	return c.app.withService(func(ctx context.Context, svc *service.AuthService) error {
		list, err := svc.ListTokens(ctx, c.User)
		if err != nil {
			return err
		}
		if c.JSON {
			enc := json.NewEncoder(c.app.out)
			enc.SetIndent("", "  ")
			return enc.Encode(list)
		}
		tw := tabwriter.NewWriter(c.app.out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tJTI\tTYPE\tREVOKED\tEXPIRES")
		for _, v := range list {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%t\t%s\n", v.TokenID, v.JTI, v.TokenType, v.Revoked, v.Expires.Format(time.RFC3339))
		}
		return tw.Flush()
	})
}

type RevokeCmd struct {
	app  *app
	JTI  string `long:"jti" description:"Token id claim"`
	ID   uint   `long:"id" description:"Registry id; needs --user"`
	User string `short:"u" long:"user" description:"Owner of --id"`
	Undo bool   `long:"undo" description:"Unrevoke instead"`
}

func (c *RevokeCmd) selector() (repo.Selector, error) {
	switch {
	case c.JTI != "" && c.ID != 0:
		return repo.Selector{}, fmt.Errorf("use either --jti or --id, not both")
	case c.JTI != "":
		return repo.ByJTI(c.JTI), nil
	case c.ID != 0 && c.User != "":
		return repo.ByID(c.ID, c.User), nil
	case c.ID != 0:
		return repo.Selector{}, fmt.Errorf("--id needs --user")
	default:
		return repo.Selector{}, fmt.Errorf("one of --jti or --id is required")
	}
}

func (c *RevokeCmd) Execute(_ []string) error {
	sel, err := c.selector()
	if err != nil {
		return err
	}
	return c.app.withService(func(ctx context.Context, svc *service.AuthService) error {
		if c.Undo {
			if err := svc.Unrevoke(ctx, sel); err != nil {
				return err
			}
			fmt.Fprintf(c.app.out, "unrevoked %s\n", sel)
			return nil
		}
		if err := svc.Revoke(ctx, sel); err != nil {
			return err
		}
		fmt.Fprintf(c.app.out, "revoked %s\n", sel)
		return nil
	})
}
