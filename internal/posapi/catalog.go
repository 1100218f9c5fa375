package posapi

import (
	"kasir-sync/internal/inventory"

	"github.com/gofiber/fiber/v2"
)

// GET /api/products
func ListProductsHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := inv.ListProducts(c.UserContext())
		if err != nil {
			return toFiber(err)
		}
		return c.JSON(rows)
	}
}

// POST /api/products
func CreateProductHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body inventory.ProductInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		p, err := inv.CreateProduct(c.UserContext(), body)
		if err != nil {
			return toFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}

// PUT /api/products/:id
func UpdateProductHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body inventory.ProductPatch
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		p, err := inv.UpdateProduct(c.UserContext(), c.Params("id"), body)
		if err != nil {
			return toFiber(err)
		}
		return c.JSON(p)
	}
}

// DELETE /api/products/:id (admin)
func DeleteProductHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		confirmed, err := inv.DeleteProduct(c.UserContext(), c.Params("id"))
		if err != nil {
			return toFiber(err)
		}
		return c.JSON(fiber.Map{
			"deleted":          true,
			"remote_confirmed": confirmed,
		})
	}
}

// GET /api/products/barcode/:code
func FindByBarcodeHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, err := inv.FindByBarcode(c.UserContext(), c.Params("code"))
		if err != nil {
			return toFiber(err)
		}
		return c.JSON(p)
	}
}

// POST /api/products/import (multipart, field "file")
func ImportProductsHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		fh, err := c.FormFile("file")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "file field is required")
		}
		f, err := fh.Open()
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "could not read upload")
		}
		defer f.Close()

		report, err := inv.ImportProducts(c.UserContext(), f)
		if err != nil {
			return toFiber(err)
		}
		return c.JSON(report)
	}
}

// GET /api/suppliers
func ListSuppliersHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := inv.ListSuppliers(c.UserContext())
		if err != nil {
			return toFiber(err)
		}
		return c.JSON(rows)
	}
}

// POST /api/suppliers
func CreateSupplierHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body inventory.SupplierInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sup, err := inv.CreateSupplier(c.UserContext(), body)
		if err != nil {
			return toFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(sup)
	}
}

// PUT /api/suppliers/:id
func UpdateSupplierHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body inventory.SupplierPatch
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		sup, err := inv.UpdateSupplier(c.UserContext(), c.Params("id"), body)
		if err != nil {
			return toFiber(err)
		}
		return c.JSON(sup)
	}
}

// GET /api/purchases
func ListPurchasesHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		rows, err := inv.ListPurchases(c.UserContext())
		if err != nil {
			return toFiber(err)
		}
		return c.JSON(rows)
	}
}

// POST /api/purchases
func CreatePurchaseHandler(inv *inventory.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body inventory.PurchaseInput
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		p, err := inv.RecordPurchase(c.UserContext(), body)
		if err != nil {
			return toFiber(err)
		}
		return c.Status(fiber.StatusCreated).JSON(p)
	}
}
