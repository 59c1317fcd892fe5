package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"storefront-service/clients"
	"storefront-service/models"

	"github.com/gin-gonic/gin"
)

// CatalogController serves product lists, product details and the category
// menu. Lists are paged per session.
type CatalogController struct {
	catalog clients.CatalogGateway
}

func NewCatalogController(catalog clients.CatalogGateway) *CatalogController {
	return &CatalogController{catalog: catalog}
}

// ListProducts lists the default category.
func (cc *CatalogController) ListProducts(c *gin.Context) {
	cc.listCategory(c, 0)
}

func (cc *CatalogController) ListCategory(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	cc.listCategory(c, id)
}

func (cc *CatalogController) listCategory(c *gin.Context, categoryID int64) {
	var q models.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBadRequest(c, err)
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	sess.Lock()
	view, err := sess.Listing.ListCategory(c.Request.Context(), categoryID, q)
	sess.Unlock()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (cc *CatalogController) Search(c *gin.Context) {
	keyword := strings.TrimSpace(c.Param("keyword"))
	if keyword == "" {
		abortBadRequest(c, fmt.Errorf("keyword must not be empty"))
		return
	}
	var q models.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		abortBadRequest(c, err)
		return
	}
	sess, ok := sessionFromContext(c)
	if !ok {
		return
	}

	sess.Lock()
	view, err := sess.Listing.Search(c.Request.Context(), keyword, q)
	sess.Unlock()
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (cc *CatalogController) GetProduct(c *gin.Context) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		abortBadRequest(c, err)
		return
	}
	product, err := cc.catalog.Product(c.Request.Context(), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (cc *CatalogController) Categories(c *gin.Context) {
	categories, err := cc.catalog.Categories(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	if categories == nil {
		categories = []models.ProductCategory{}
	}
	c.JSON(http.StatusOK, categories)
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}
