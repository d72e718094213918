// admin administra la plantilla y el esquema directamente contra PostgreSQL,
// sin pasar por la API. Sirve para dar de alta al primer manager.
//
// Uso:
//
//	go run ./cmd/admin migrate
//	go run ./cmd/admin user create --name "Ana" --employee-number E-100 --role manager --pin 1234
//	go run ./cmd/admin user set-pin --id <user-id> --pin 5678
//	go run ./cmd/admin user deactivate --id <user-id>
//	go run ./cmd/admin user list
package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jhoicas/recon-api/internal/application/auth"
	"github.com/jhoicas/recon-api/internal/application/dto"
	"github.com/jhoicas/recon-api/internal/application/usecase"
	"github.com/jhoicas/recon-api/internal/domain/entity"
	"github.com/jhoicas/recon-api/internal/domain/lifecycle"
	"github.com/jhoicas/recon-api/internal/infrastructure/postgres"
	"github.com/jhoicas/recon-api/pkg/config"
	"github.com/jhoicas/recon-api/pkg/logger"
)

// cliActor identidad con la que la CLI ejecuta operaciones reservadas al manager.
var cliActor = lifecycle.Actor{ID: "admin-cli", Role: entity.RoleManager}

func main() {
	if err := rootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Administración de recon-api",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
		},
	}
	root.AddCommand(migrateCmd(), userCmd())
	return root
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Aplica las migraciones pendientes",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withPool(cmd.Context(), func(_ *config.Config, pool *pgxpool.Pool, _ *logger.Logger) error {
				applied, err := postgres.Migrate(cmd.Context(), pool)
				if err != nil {
					return err
				}
				if len(applied) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "sin migraciones pendientes")
				}
				for _, name := range applied {
					fmt.Fprintln(cmd.OutOrStdout(), "aplicada:", name)
				}
				return nil
			})
		},
	}
}

func userCmd() *cobra.Command {
	user := &cobra.Command{
		Use:   "user",
		Short: "Administración de usuarios",
	}

	var in dto.CreateUserRequest
	create := &cobra.Command{
		Use:   "create",
		Short: "Crea un usuario activo con PIN",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), func(uc *usecase.UserUseCase) error {
				out, err := uc.Create(cmd.Context(), in)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "usuario creado: %s (%s)\n", out.ID, out.Role)
				return nil
			})
		},
	}
	create.Flags().StringVar(&in.DisplayName, "name", "", "nombre visible")
	create.Flags().StringVar(&in.EmployeeNumber, "employee-number", "", "número de empleado")
	create.Flags().StringVar(&in.Username, "username", "", "username")
	create.Flags().StringVar(&in.ExternalUID, "external-uid", "", "uid del proveedor de identidad")
	create.Flags().StringVar(&in.PhoneNumber, "phone", "", "teléfono")
	create.Flags().StringVar(&in.Role, "role", string(entity.RoleDetailer), "manager, detailer o salesperson")
	create.Flags().StringVar(&in.Pin, "pin", "", "PIN de 4 a 8 dígitos")
	_ = create.MarkFlagRequired("name")
	_ = create.MarkFlagRequired("pin")

	var userID, pin string
	setPin := &cobra.Command{
		Use:   "set-pin",
		Short: "Cambia el PIN de un usuario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), func(uc *usecase.UserUseCase) error {
				if err := uc.SetPin(cmd.Context(), cliActor, userID, pin); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "PIN actualizado")
				return nil
			})
		},
	}
	setPin.Flags().StringVar(&userID, "id", "", "ID del usuario")
	setPin.Flags().StringVar(&pin, "pin", "", "PIN de 4 a 8 dígitos")
	_ = setPin.MarkFlagRequired("id")
	_ = setPin.MarkFlagRequired("pin")

	deactivate := &cobra.Command{
		Use:   "deactivate",
		Short: "Baja lógica de un usuario",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), func(uc *usecase.UserUseCase) error {
				if err := uc.Deactivate(cmd.Context(), userID); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "usuario desactivado")
				return nil
			})
		},
	}

	deactivate.Flags().StringVar(&userID, "id", "", "ID del usuario")
	_ = deactivate.MarkFlagRequired("id")

	var page dto.PageRequest
	list := &cobra.Command{
		Use:   "list",
		Short: "Lista usuarios",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUsers(cmd.Context(), func(uc *usecase.UserUseCase) error {
				out, err := uc.List(cmd.Context(), page)
				if err != nil {
					return err
				}
				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tEMPLEADO\tNOMBRE\tROL\tACTIVO\tPIN")
				for _, u := range out.Items {
					fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%t\n", u.ID, u.EmployeeNumber, u.DisplayName, u.Role, u.IsActive, u.HasPin)
				}
				return w.Flush()
			})
		},
	}
	list.Flags().IntVar(&page.Limit, "limit", 50, "límite")
	list.Flags().IntVar(&page.Offset, "offset", 0, "offset")

	user.AddCommand(create, setPin, deactivate, list)
	return user
}

func withPool(ctx context.Context, fn func(cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Service: "recon-admin", Output: os.Stderr})
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	defer pool.Close()
	return fn(cfg, pool, log)
}

func withUsers(ctx context.Context, fn func(uc *usecase.UserUseCase) error) error {
	return withPool(ctx, func(cfg *config.Config, pool *pgxpool.Pool, log *logger.Logger) error {
		users := postgres.NewUserRepository(pool)
		credentials := auth.NewCredentialStore(users, postgres.NewPinLocker(pool), cfg.Auth.BcryptCost)
		return fn(usecase.NewUserUseCase(users, credentials, log))
	})
}
