// billingctl es la herramienta administrativa del servicio de facturación.
//
// Uso:
//
//	billingctl migrate up
//	billingctl migrate down --steps 1
//	billingctl migrate version
//	billingctl token --user U --company C --role vendedor
//	billingctl seed --company C --file catalogo.csv [--latin1]
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/pkg/config"
	"github.com/jhoicas/facturacion-api/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "billingctl",
		Usage: "migraciones, tokens de desarrollo y carga de catálogo",
		Before: func(c *cli.Context) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("cargar configuración: %w", err)
			}
			c.App.Metadata = map[string]interface{}{
				"config": cfg,
				"logger": logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel, Output: os.Stderr}),
			}
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "aplica o revierte el esquema",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "aplica las migraciones pendientes", Action: migrateUp},
					{
						Name:   "down",
						Usage:  "revierte migraciones",
						Flags:  []cli.Flag{&cli.IntFlag{Name: "steps", Value: 1, Usage: "cantidad de migraciones a revertir"}},
						Action: migrateDown,
					},
					{Name: "version", Usage: "muestra la versión aplicada", Action: migrateVersion},
				},
			},
			{
				Name:  "token",
				Usage: "emite un JWT de desarrollo",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true},
					&cli.StringFlag{Name: "company", Required: true},
					&cli.StringFlag{Name: "role", Value: entity.RoleVendedor},
					&cli.IntFlag{Name: "minutes", Usage: "vigencia; 0 usa JWT_EXPIRATION_MINUTES"},
				},
				Action: issueToken,
			},
			{
				Name:  "seed",
				Usage: "carga productos desde un CSV (sku,name,price,stock,unit)",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "company", Required: true},
					&cli.StringFlag{Name: "file", Required: true},
					&cli.BoolFlag{Name: "latin1", Usage: "el archivo viene en ISO-8859-1"},
				},
				Action: seedCatalog,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func configFrom(c *cli.Context) *config.Config {
	return c.App.Metadata["config"].(*config.Config)
}

func loggerFrom(c *cli.Context) *logger.Logger {
	return c.App.Metadata["logger"].(*logger.Logger)
}
