package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/anonto42/socialape/backend/internal/blob"
	"github.com/anonto42/socialape/backend/internal/cache"
	"github.com/anonto42/socialape/backend/internal/docstore"
	"github.com/anonto42/socialape/backend/internal/middleware"
	"github.com/anonto42/socialape/backend/internal/models"
	"github.com/anonto42/socialape/backend/internal/repositories"
)

const (
	recentNotificationsLimit = 10
	maxImageSize             = 10 << 20
)

var errWrongFileType = models.NewBadRequestError("Wrong file type, please submit an image.")

// UserHandler handles profile requests
type UserHandler struct {
	userRepository         repositories.UserRepository
	screamRepository       repositories.ScreamRepository
	likeRepository         repositories.LikeRepository
	notificationRepository repositories.NotificationRepository
	uploader               blob.Uploader
	cache                  cache.ScreamCache
	logger                 *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(
	userRepo repositories.UserRepository,
	screamRepo repositories.ScreamRepository,
	likeRepo repositories.LikeRepository,
	notifRepo repositories.NotificationRepository,
	uploader blob.Uploader,
	screamCache cache.ScreamCache,
	logger *slog.Logger,
) *UserHandler {
	return &UserHandler{
		userRepository:         userRepo,
		screamRepository:       screamRepo,
		likeRepository:         likeRepo,
		notificationRepository: notifRepo,
		uploader:               uploader,
		cache:                  screamCache,
		logger:                 logger,
	}
}

// RegisterUserRoutes registers profile routes; auth guards the caller's own
func (h *UserHandler) RegisterUserRoutes(g *echo.Group, auth echo.MiddlewareFunc) {
	g.GET("/user", h.GetAuthenticatedUser, auth)
	g.POST("/user", h.AddUserDetails, auth)
	g.POST("/user/image", h.UploadImage, auth)
	g.GET("/user/:handle", h.GetUserDetail)
}

// AddUserDetails updates bio, website and location of the caller
func (h *UserHandler) AddUserDetails(c echo.Context) error {
	var req models.UserDetailsRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.userRepository.UpdateUserDetails(c.Request().Context(), middleware.Handle(c), req.Reduce()); err != nil {
		return models.NewStoreError(err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Details added successfully"})
}

// GetUserDetail returns any user's profile and screams
func (h *UserHandler) GetUserDetail(c echo.Context) error {
	ctx := c.Request().Context()
	user, err := h.userRepository.GetUserByHandle(ctx, c.Param("handle"))
	if errors.Is(err, docstore.ErrNotFound) {
		return models.NewNotFoundError("User")
	}
	if err != nil {
		return models.NewStoreError(err)
	}

	screams, err := h.screamRepository.GetScreamsByUser(ctx, user.Handle)
	if err != nil {
		return models.NewStoreError(err)
	}
	return c.JSON(http.StatusOK, models.UserDetail{User: *user, Screams: screams})
}

// GetAuthenticatedUser returns the caller's profile, likes and latest
// notifications
func (h *UserHandler) GetAuthenticatedUser(c echo.Context) error {
	ctx := c.Request().Context()
	handle := middleware.Handle(c)

	user, err := h.userRepository.GetUserByHandle(ctx, handle)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.NewNotFoundError("User")
	}
	if err != nil {
		return models.NewStoreError(err)
	}

	likes, err := h.likeRepository.GetLikesByUser(ctx, handle)
	if err != nil {
		return models.NewStoreError(err)
	}
	notifications, err := h.notificationRepository.GetRecentByRecipient(ctx, handle, recentNotificationsLimit)
	if err != nil {
		return models.NewStoreError(err)
	}

	return c.JSON(http.StatusOK, models.AuthenticatedUser{
		Credentials:   *user,
		Likes:         likes,
		Notifications: notifications,
	})
}

// UploadImage streams a single image part to a temp file, uploads it under
// a random name and points the caller's imageUrl at it
func (h *UserHandler) UploadImage(c echo.Context) error {
	reader, err := c.Request().MultipartReader()
	if err != nil {
		return models.NewBadRequestError("Expected a multipart upload")
	}

	var (
		tmp         *os.File
		contentType string
		ext         string
	)
	defer func() {
		if tmp != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.NewBadRequestError("Invalid multipart body")
		}
		if part.FileName() == "" {
			_ = part.Close()
			continue
		}
		if tmp != nil {
			_ = part.Close()
			return models.NewBadRequestError("Only one file may be uploaded")
		}

		contentType = part.Header.Get(echo.HeaderContentType)
		if !strings.HasPrefix(contentType, "image/") {
			_ = part.Close()
			return errWrongFileType
		}
		ext = strings.ToLower(filepath.Ext(part.FileName()))
		if tmp, err = spool(part, ext); err != nil {
			return err
		}
	}
	if tmp == nil {
		return models.NewBadRequestError("No image uploaded")
	}

	if err := checkImage(tmp, contentType); err != nil {
		return err
	}

	ctx := c.Request().Context()
	url, err := h.uploader.Upload(ctx, uuid.NewString()+ext, contentType, tmp)
	if err != nil {
		return models.NewStoreError(err)
	}
	if err := h.userRepository.UpdateImageURL(ctx, middleware.Handle(c), url); err != nil {
		return models.NewStoreError(err)
	}
	// the image change reaction rewrites userImage on the caller's screams
	if err := h.cache.Invalidate(ctx); err != nil {
		h.logger.Warn("invalidate scream cache", "error", err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "Image uploaded successfully"})
}

// spool copies a part into a temp file, enforcing the size limit
func spool(part *multipart.Part, ext string) (*os.File, error) {
	defer part.Close()

	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return nil, models.NewStoreError(err)
	}
	n, err := io.Copy(tmp, io.LimitReader(part, maxImageSize+1))
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, models.NewBadRequestError("Invalid multipart body")
	}
	if n > maxImageSize {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, models.NewBadRequestError("Image must be at most 10MB")
	}
	return tmp, nil
}

// checkImage sniffs the spooled file and rewinds it. SVG is text and
// cannot be sniffed, so the declared type is trusted for it.
func checkImage(f *os.File, declared string) error {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return models.NewStoreError(err)
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return models.NewStoreError(err)
	}
	if declared != "image/svg+xml" && !strings.HasPrefix(http.DetectContentType(head[:n]), "image/") {
		return errWrongFileType
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return models.NewStoreError(err)
	}
	return nil
}
