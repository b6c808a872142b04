package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/jhoicas/facturacion-api/internal/application/catalog"
	"github.com/jhoicas/facturacion-api/internal/domain"
	"github.com/jhoicas/facturacion-api/internal/domain/entity"
	"github.com/jhoicas/facturacion-api/internal/infrastructure/postgres"
	pkgjwt "github.com/jhoicas/facturacion-api/pkg/jwt"
)

func withMigrator(c *cli.Context, fn func(*postgres.Migrator) error) error {
	mg, err := postgres.NewMigrator(configFrom(c).DB.ConnectionString())
	if err != nil {
		return err
	}
	defer func() { _ = mg.Close() }()
	return fn(mg)
}

func migrateUp(c *cli.Context) error {
	return withMigrator(c, func(mg *postgres.Migrator) error {
		if err := mg.Up(); err != nil {
			return err
		}
		v, _, err := mg.Version()
		if err != nil {
			return err
		}
		loggerFrom(c).Info().Uint("version", v).Msg("migraciones aplicadas")
		return nil
	})
}

func migrateDown(c *cli.Context) error {
	steps := c.Int("steps")
	if steps <= 0 {
		return fmt.Errorf("--steps debe ser positivo")
	}
	return withMigrator(c, func(mg *postgres.Migrator) error {
		if err := mg.Down(steps); err != nil {
			return err
		}
		loggerFrom(c).Info().Int("steps", steps).Msg("migraciones revertidas")
		return nil
	})
}

func migrateVersion(c *cli.Context) error {
	return withMigrator(c, func(mg *postgres.Migrator) error {
		v, dirty, err := mg.Version()
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "versión %d (dirty=%t)\n", v, dirty)
		return nil
	})
}

func issueToken(c *cli.Context) error {
	cfg := configFrom(c)
	minutes := c.Int("minutes")
	if minutes <= 0 {
		minutes = cfg.JWT.Expiration
	}
	tok, err := pkgjwt.Generate(cfg.JWT.Secret, c.String("user"), c.String("company"), c.String("role"), cfg.JWT.Issuer, minutes)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, tok)
	return nil
}

func seedCatalog(c *cli.Context) error {
	log := loggerFrom(c)
	f, err := os.Open(c.String("file"))
	if err != nil {
		return fmt.Errorf("abrir catálogo: %w", err)
	}
	defer f.Close()

	rows, err := readCatalogCSV(f, c.Bool("latin1"))
	if err != nil {
		return err
	}

	pool, err := postgres.NewPool(c.Context, configFrom(c).DB)
	if err != nil {
		return err
	}
	defer pool.Close()

	products := catalog.NewProductUseCase(postgres.NewTxRunner(pool), postgres.NewProductRepository(pool))
	principal := entity.Principal{UserID: "billingctl", CompanyID: c.String("company"), Role: entity.RoleAdmin}

	var created, skipped int
	for _, in := range rows {
		if _, err := products.Create(c.Context, principal, in); err != nil {
			if errors.Is(err, domain.ErrDuplicate) {
				skipped++
				log.Warn().Str("sku", in.SKU).Msg("producto ya existe, se omite")
				continue
			}
			return fmt.Errorf("crear %q: %w", in.Name, err)
		}
		created++
	}
	log.Info().Int("creados", created).Int("omitidos", skipped).Str("business_id", principal.CompanyID).Msg("catálogo cargado")
	return nil
}
