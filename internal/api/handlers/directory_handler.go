package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sharide/internal/repository"
	"sharide/internal/services"
)

// DirectoryHandler exposes directory search and the admin maintenance
// endpoints.
type DirectoryHandler struct {
	directoryService *services.DirectoryService
}

func NewDirectoryHandler(directoryService *services.DirectoryService) *DirectoryHandler {
	return &DirectoryHandler{directoryService: directoryService}
}

// Search handles GET /directory/:collection?q=...
//
// A failed store call still returns the (empty) records next to the error,
// so clients can tell "nothing found" from "could not look".
func (h *DirectoryHandler) Search(c *gin.Context) {
	result := h.directoryService.Search(c.Request.Context(), c.Param("collection"), c.Query("q"))
	if result.Err != nil {
		c.JSON(errorStatus(result.Err), gin.H{
			"error":   result.Err.Error(),
			"records": result.Records,
			"rule":    result.Rule,
			"field":   result.Field,
		})
		return
	}
	c.JSON(http.StatusOK, result)
}

// Get handles GET /directory/:collection/:id.
func (h *DirectoryHandler) Get(c *gin.Context) {
	doc, err := h.directoryService.Get(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// Update handles PATCH /directory/:collection/:id. The body is a flat JSON
// object of fields to merge.
func (h *DirectoryHandler) Update(c *gin.Context) {
	var fields repository.Document
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	doc, err := h.directoryService.Update(c.Request.Context(), c.Param("collection"), c.Param("id"), fields)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, doc)
}

// GroupForAdmin handles GET /admin/:admin_id/group.
func (h *DirectoryHandler) GroupForAdmin(c *gin.Context) {
	group, err := h.directoryService.GroupForAdmin(c.Request.Context(), c.Param("admin_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, group)
}

// MembersOfGroup handles GET /groups/:group_id/members.
func (h *DirectoryHandler) MembersOfGroup(c *gin.Context) {
	groupID := c.Param("group_id")
	members, err := h.directoryService.MembersOfGroup(c.Request.Context(), groupID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"group_id": groupID, "members": members})
}
