package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Spok95/warehouse-ledger/internal/domain/catalog"
	"github.com/Spok95/warehouse-ledger/internal/store"
)

/* Categories */

type categoryInput struct {
	Name string `json:"name"`
}

func categoryID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, store.Invalid("id", "must be a positive integer")
	}
	return id, nil
}

func (h *Handler) listCategories(c *gin.Context) {
	list, err := h.store.ListCategories(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (h *Handler) createCategory(c *gin.Context) {
	var in categoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	cat, created, err := h.store.UpsertCategory(c.Request.Context(), in.Name)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	ok(c, status, cat)
}

func (h *Handler) getCategory(c *gin.Context) {
	id, err := categoryID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	cat, err := h.store.GetCategory(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, cat)
}

func (h *Handler) renameCategory(c *gin.Context) {
	id, err := categoryID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	var in categoryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	cat, err := h.store.RenameCategory(c.Request.Context(), id, in.Name)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, cat)
}

func (h *Handler) deleteCategory(c *gin.Context) {
	id, err := categoryID(c)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if err := h.store.DeleteCategory(c.Request.Context(), id); err != nil {
		fail(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}

/* Items */

type itemInput struct {
	Code         string `json:"item_code"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	TargetStock  int64  `json:"target_stock"`
	InitialStock int64  `json:"stock"`
}

// categoryRef находит или заводит категорию по имени; пустое имя или
// "uncategorized": без категории.
func (h *Handler) categoryRef(c *gin.Context, name string) (*int64, error) {
	if catalog.GroupKey(name) == catalog.Uncategorized {
		return nil, nil
	}
	cat, _, err := h.store.UpsertCategory(c.Request.Context(), name)
	if err != nil {
		return nil, err
	}
	return &cat.ID, nil
}

func (h *Handler) listItems(c *gin.Context) {
	list, err := h.store.ListItems(c.Request.Context())
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, list)
}

func (h *Handler) createItem(c *gin.Context) {
	var in itemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if strings.TrimSpace(in.Name) == "" {
		fail(c, h.log, store.Invalid("name", "must not be empty"))
		return
	}
	catID, err := h.categoryRef(c, in.Category)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	it, err := h.store.CreateItem(c.Request.Context(), catalog.NewItem{
		Code:         in.Code,
		Name:         strings.TrimSpace(in.Name),
		CategoryID:   catID,
		TargetStock:  in.TargetStock,
		InitialStock: in.InitialStock,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, it)
}

func (h *Handler) getItem(c *gin.Context) {
	it, err := h.store.GetItemByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, it)
}

func (h *Handler) updateItem(c *gin.Context) {
	var in itemInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	cur, err := h.store.GetItemByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	catID, err := h.categoryRef(c, in.Category)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = cur.Name
	}
	it, err := h.store.UpdateItem(c.Request.Context(), cur.ID, catalog.ItemUpdate{
		Name:        name,
		CategoryID:  catID,
		TargetStock: in.TargetStock,
	})
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, it)
}

func (h *Handler) deleteItem(c *gin.Context) {
	it, err := h.store.GetItemByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	if err := h.store.DeleteItem(c.Request.Context(), it.ID); err != nil {
		fail(c, h.log, err)
		return
	}
	c.Status(http.StatusNoContent)
}
