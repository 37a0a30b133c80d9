package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"saborlimeno/gorest/models"
	"saborlimeno/gorest/store"
)

type CatalogStore interface {
	store.Counters
	store.Dishes
}

// Catalog serves the menu.
type Catalog struct {
	store CatalogStore
}

func NewCatalog(st CatalogStore) *Catalog {
	return &Catalog{store: st}
}

// DishInput is the body accepted by create and update.
type DishInput struct {
	Name        string `json:"name"`
	Price       int64  `json:"price"`
	Category    string `json:"category"`
	Description string `json:"description"`
	Ingredients string `json:"ingredients"`
	Image       string `json:"image"`
	Available   *bool  `json:"disponible"`
}

func (in *DishInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Category = strings.TrimSpace(in.Category)
	if in.Name == "" {
		return invalid("name", "is required")
	}
	if in.Price <= 0 {
		return invalid("price", "must be greater than zero")
	}
	return nil
}

func (in DishInput) apply(d *models.Dish) {
	d.Name = in.Name
	d.Price = in.Price
	d.Category = in.Category
	d.Description = in.Description
	d.Ingredients = in.Ingredients
	d.Image = in.Image
	if in.Available != nil {
		d.Available = *in.Available
	}
}

// ListAvailable returns the dishes currently on offer.
func (c *Catalog) ListAvailable(ctx context.Context) ([]models.Dish, error) {
	return c.store.ListDishes(ctx, true)
}

func (c *Catalog) ListAll(ctx context.Context) ([]models.Dish, error) {
	return c.store.ListDishes(ctx, false)
}

func (c *Catalog) Get(ctx context.Context, id int) (*models.Dish, error) {
	d, err := c.store.FindDish(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	return d, err
}

// Create adds a dish. New dishes are available unless the input says otherwise.
func (c *Catalog) Create(ctx context.Context, in DishInput) (*models.Dish, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	id, err := c.store.NextSequence(ctx, store.SeqDishes)
	if err != nil {
		return nil, err
	}
	d := &models.Dish{ID: id, Available: true}
	in.apply(d)
	if err := c.store.InsertDish(ctx, d); err != nil {
		return nil, fmt.Errorf("insert dish: %w", err)
	}
	return d, nil
}

// Update replaces the editable fields of a dish. Order snapshots taken
// earlier keep their frozen name and price.
func (c *Catalog) Update(ctx context.Context, id int, in DishInput) (*models.Dish, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	d, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(d)
	if err := c.store.UpdateDish(ctx, d); err != nil {
		return nil, fmt.Errorf("update dish %d: %w", id, err)
	}
	return d, nil
}

func (c *Catalog) SetAvailability(ctx context.Context, id int, available bool) (*models.Dish, error) {
	d, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	d.Available = available
	if err := c.store.UpdateDish(ctx, d); err != nil {
		return nil, fmt.Errorf("update dish %d: %w", id, err)
	}
	return d, nil
}

// SeedMenu loads the house menu into an empty catalog and reports how many
// dishes were inserted. A catalog that already has dishes is left untouched.
func (c *Catalog) SeedMenu(ctx context.Context) (int, error) {
	existing, err := c.store.ListDishes(ctx, false)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, nil
	}
	for i, in := range houseMenu {
		if _, err := c.Create(ctx, in); err != nil {
			return i, fmt.Errorf("seed %q: %w", in.Name, err)
		}
	}
	return len(houseMenu), nil
}

func boolPtr(b bool) *bool { return &b }

var houseMenu = []DishInput{
	{Name: "Ceviche Clásico", Price: 10990, Category: "entradas", Available: boolPtr(true), Description: "Pescado fresco marinado en limón.", Ingredients: "Pescado|Limón|Cebolla"},
	{Name: "Tiradito de Pescado", Price: 11990, Category: "entradas", Available: boolPtr(true), Description: "Finas láminas de pescado.", Ingredients: "Pescado|Ají Amarillo|Limón"},
	{Name: "Causa Limeña", Price: 8990, Category: "entradas", Available: boolPtr(true), Description: "Puré de papa amarilla con pollo.", Ingredients: "Papa|Pollo|Mayonesa"},
	{Name: "Lomo Saltado", Price: 12990, Category: "fondo", Available: boolPtr(true), Description: "Trozos de carne salteados.", Ingredients: "Carne|Cebolla|Tomate|Papas Fritas"},
	{Name: "Ají de Gallina", Price: 11990, Category: "fondo", Available: boolPtr(false), Description: "Crema de ají con gallina.", Ingredients: "Gallina|Ají Amarillo|Leche|Pan"},
	{Name: "Pachamanca", Price: 14990, Category: "fondo", Available: boolPtr(false), Description: "Carnes cocidas bajo tierra.", Ingredients: "Cerdo|Pollo|Camote"},
	{Name: "Arroz con Pato", Price: 13990, Category: "fondo", Available: boolPtr(true), Description: "Arroz verde con pato.", Ingredients: "Pato|Arroz|Cilantro"},
	{Name: "Anticuchos", Price: 9990, Category: "especialidades", Available: boolPtr(true), Description: "Brochetas de corazón.", Ingredients: "Corazón de Res|Ají Panca"},
	{Name: "Rocoto Relleno", Price: 12990, Category: "especialidades", Available: boolPtr(false), Description: "Rocoto con carne molida.", Ingredients: "Rocoto|Carne|Queso"},
	{Name: "Cuy Chactado", Price: 18990, Category: "especialidades", Available: boolPtr(true), Description: "Cuy frito crujiente.", Ingredients: "Cuy|Maíz|Papas"},
	{Name: "Suspiro Limeño", Price: 8990, Category: "postres", Available: boolPtr(true), Description: "Dulce de leche con merengue.", Ingredients: "Leche condensada|Huevo|Vainilla"},
	{Name: "Mazamorra Morada", Price: 7990, Category: "postres", Available: boolPtr(true), Description: "Postre de maíz morado.", Ingredients: "Maíz Morado|Frutas"},
	{Name: "Picarones", Price: 6990, Category: "postres", Available: boolPtr(true), Description: "Anillos fritos con miel.", Ingredients: "Zapallo|Camote|Miel de Chancaca"},
}
