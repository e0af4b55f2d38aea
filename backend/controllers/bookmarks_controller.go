package controllers

import (
	"potatolearn/backend/middleware"
	"potatolearn/backend/services"
	"potatolearn/backend/utils"

	"github.com/gofiber/fiber/v2"
)

type BookmarksController struct {
	Bookmarks *services.BookmarkService
}

func NewBookmarksController(bookmarks *services.BookmarkService) *BookmarksController {
	return &BookmarksController{Bookmarks: bookmarks}
}

func (bc *BookmarksController) GetBookmarks(c *fiber.Ctx) error {
	bookmarks, err := bc.Bookmarks.List(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return err
	}
	return utils.List(c, bookmarks)
}

func (bc *BookmarksController) AddBookmark(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId", "course")
	if err != nil {
		return err
	}

	bookmarks, err := bc.Bookmarks.Add(c.UserContext(), middleware.CurrentUser(c).ID, courseID)
	if err != nil {
		return err
	}
	return utils.OK(c, bookmarks, "Course bookmarked")
}

func (bc *BookmarksController) RemoveBookmark(c *fiber.Ctx) error {
	courseID, err := paramID(c, "courseId", "course")
	if err != nil {
		return err
	}

	bookmarks, err := bc.Bookmarks.Remove(c.UserContext(), middleware.CurrentUser(c).ID, courseID)
	if err != nil {
		return err
	}
	return utils.OK(c, bookmarks, "Bookmark removed")
}
