package httpapi

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
)

var (
	errPriceRequired = errors.New("price is required")
	errStockRequired = errors.New("stock is required")
	errPriceFormat   = errors.New("price must be a non-negative number")
	errStockFormat   = errors.New("stock must be a non-negative integer")
	errImageURL      = errors.New("image URL must be a valid URL")
	errImageType     = errors.New("only image files are allowed (jpeg, jpg, png, gif, webp)")
)

var imageExtensions = map[string]struct{}{
	".jpeg": {}, ".jpg": {}, ".png": {}, ".gif": {}, ".webp": {},
}

// productPayload — поля товара из JSON или multipart-формы; nil означает "не передано".
type productPayload struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
	Category    *string          `json:"category"`
	ImageURL    *string          `json:"image_url"`

	image *multipart.FileHeader
}

func (s *Server) listProducts(c *gin.Context) {
	filter := domain.ProductFilter{
		Category: strings.TrimSpace(c.Query("category")),
		Search:   strings.TrimSpace(c.Query("search")),
	}
	products, err := s.repos.Products.List(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Products retrieved successfully", products)
}

func (s *Server) listCategories(c *gin.Context) {
	categories, err := s.repos.Products.Categories(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Categories retrieved successfully", categories)
}

func (s *Server) getProduct(c *gin.Context) {
	product, err := s.repos.Products.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product retrieved successfully", product)
}

func (s *Server) createProduct(c *gin.Context) {
	payload, err := s.readProductPayload(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var errs []error
	if payload.Price == nil {
		errs = append(errs, errPriceRequired)
	}
	if payload.Stock == nil {
		errs = append(errs, errStockRequired)
	}
	if len(errs) > 0 {
		s.respondError(c, domain.NewValidationError(errs))
		return
	}

	product := productUpdate(payload).Apply(domain.Product{})
	product.Name = strings.TrimSpace(product.Name)
	if err := domain.NewValidationError(product.Validate()); err != nil {
		s.respondError(c, err)
		return
	}

	imagePath, err := s.storeImage(c, payload)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if imagePath != nil {
		product.ImagePath = *imagePath
	}

	created, err := s.repos.Products.Create(c.Request.Context(), product)
	if err != nil {
		s.discardUpload(payload, imagePath)
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Product created successfully", created)
}

func (s *Server) updateProduct(c *gin.Context) {
	payload, err := s.readProductPayload(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	update := productUpdate(payload)
	if err := domain.NewValidationError(update.Validate()); err != nil {
		s.respondError(c, err)
		return
	}

	imagePath, err := s.storeImage(c, payload)
	if err != nil {
		s.respondError(c, err)
		return
	}
	update.ImagePath = imagePath

	updated, err := s.repos.Products.Update(c.Request.Context(), c.Param("id"), update)
	if err != nil {
		s.discardUpload(payload, imagePath)
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product updated successfully", updated)
}

func (s *Server) deleteProduct(c *gin.Context) {
	if err := s.repos.Products.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product deleted successfully", nil)
}

func productUpdate(p productPayload) domain.ProductUpdate {
	update := domain.ProductUpdate{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
	}
	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		update.Name = &name
	}
	return update
}

// readProductPayload читает товар из multipart-формы или JSON в зависимости от Content-Type.
func (s *Server) readProductPayload(c *gin.Context) (productPayload, error) {
	var payload productPayload
	if c.ContentType() != gin.MIMEMultipartPOSTForm {
		if err := c.ShouldBindJSON(&payload); err != nil {
			return payload, fmt.Errorf("%w: malformed product payload", domain.ErrInvalidInput)
		}
		return payload, nil
	}

	var errs []error
	payload.Name = optionalForm(c, "name")
	payload.Description = optionalForm(c, "description")
	payload.Category = optionalForm(c, "category")
	payload.ImageURL = optionalForm(c, "image_url")
	if raw := optionalForm(c, "price"); raw != nil {
		price, err := decimal.NewFromString(strings.TrimSpace(*raw))
		if err != nil {
			errs = append(errs, errPriceFormat)
		} else {
			payload.Price = &price
		}
	}
	if raw := optionalForm(c, "stock"); raw != nil {
		stock, err := strconv.Atoi(strings.TrimSpace(*raw))
		if err != nil {
			errs = append(errs, errStockFormat)
		} else {
			payload.Stock = &stock
		}
	}

	file, err := c.FormFile("image")
	switch {
	case err == nil:
		payload.image = file
	case !errors.Is(err, http.ErrMissingFile):
		errs = append(errs, fmt.Errorf("read image: %w", err))
	}

	return payload, domain.NewValidationError(errs)
}

// optionalForm возвращает nil для отсутствующего или пустого поля формы.
func optionalForm(c *gin.Context, key string) *string {
	value, ok := c.GetPostForm(key)
	if !ok || value == "" {
		return nil
	}
	return &value
}

// storeImage сохраняет загруженный файл как /uploads/<uuid><ext> либо
// возвращает проверенный image_url. nil — изображение не передавалось.
func (s *Server) storeImage(c *gin.Context, payload productPayload) (*string, error) {
	if payload.image != nil {
		ext := strings.ToLower(filepath.Ext(payload.image.Filename))
		if _, ok := imageExtensions[ext]; !ok {
			return nil, domain.NewValidationError([]error{errImageType})
		}
		if payload.image.Size > s.cfg.MaxUploadBytes {
			return nil, domain.NewValidationError([]error{fmt.Errorf("image must be smaller than %d bytes", s.cfg.MaxUploadBytes)})
		}

		name := uuid.NewString() + ext
		if err := c.SaveUploadedFile(payload.image, filepath.Join(s.cfg.UploadDir, name)); err != nil {
			return nil, fmt.Errorf("save uploaded image: %w", err)
		}
		path := "/uploads/" + name
		return &path, nil
	}

	if payload.ImageURL == nil {
		return nil, nil
	}
	imageURL := strings.TrimSpace(*payload.ImageURL)
	if imageURL == "" {
		return nil, nil
	}
	if err := s.validate.Var(imageURL, "url"); err != nil {
		return nil, domain.NewValidationError([]error{errImageURL})
	}
	return &imageURL, nil
}

// discardUpload удаляет файл, сохранённый для запроса, который не дошёл до хранилища.
func (s *Server) discardUpload(payload productPayload, imagePath *string) {
	if payload.image == nil || imagePath == nil {
		return
	}
	file := filepath.Join(s.cfg.UploadDir, strings.TrimPrefix(*imagePath, "/uploads/"))
	if err := os.Remove(file); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.WithError(err).WithField("file", file).Warn("failed to remove orphaned upload")
	}
}
