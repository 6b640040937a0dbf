// admin 运维命令行：引导首个管理员、查看管理员、签发本地开发令牌
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"greenhome/internal/core/apperr"
	"greenhome/internal/core/auth"
	"greenhome/internal/core/config"
	"greenhome/internal/core/logger"
	"greenhome/internal/feature/account"
	"greenhome/internal/repo"
)

const usage = `usage: admin <command> [flags]

commands:
  bootstrap --email <email>   promote the first admin (refused once any admin exists)
  admins                      list admin accounts
  token --email <email>       issue a local-provider bearer token
`

func main() {
	_ = godotenv.Load()
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}
	cmd, rest := args[0], args[1:]

	fs := pflag.NewFlagSet(cmd, pflag.ContinueOnError)
	cfgPath := fs.StringP("config", "c", "", "config file")
	email := fs.String("email", "", "account email")
	if err := fs.Parse(rest); err != nil {
		return err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return err
	}

	switch cmd {
	case "token":
		return issueToken(cfg, *email, out)
	case "bootstrap", "admins":
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}

	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stores, err := repo.Open(ctx, cfg.DB, cfg.App.Name+"-admin", log)
	if err != nil {
		return err
	}
	defer func() {
		if err := stores.Close(context.Background()); err != nil {
			log.Warn("store close", zap.Error(err))
		}
	}()
	svc := account.NewService(stores.Accounts, log)

	if cmd == "bootstrap" {
		if err := svc.BootstrapAdmin(ctx, *email); err != nil {
			return describe(err)
		}
		fmt.Fprintf(out, "%s is now an admin\n", *email)
		return nil
	}

	admins, err := svc.Admins(ctx)
	if err != nil {
		return describe(err)
	}
	for _, a := range admins {
		fmt.Fprintf(out, "%s\t%s\t%s\n", a.ID, a.Email, a.CreatedAt.Format(time.RFC3339))
	}
	if len(admins) == 0 {
		fmt.Fprintln(out, "no admins")
	}
	return nil
}

func issueToken(cfg *config.Config, email string, out io.Writer) error {
	if email == "" {
		return errors.New("--email is required")
	}
	if cfg.Auth.Local.Secret == "" {
		return errors.New("auth.local.secret is not configured")
	}
	tok, err := auth.NewJWTer(cfg.Auth.Local).Issue("cli:"+email, email)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, tok)
	return nil
}

// describe 业务错误只给出文案，内部错误保留原因
func describe(err error) error {
	if apperr.KindOf(err) == apperr.KindInternal {
		return err
	}
	return errors.New(apperr.Message(err))
}
