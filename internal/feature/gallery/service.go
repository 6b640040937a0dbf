package gallery

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"greenhome/internal/core/apperr"
	"greenhome/internal/core/metrics"
	"greenhome/internal/domain"
	"greenhome/pkg/utils"
)

const (
	msgNoFiles    = "No images uploaded"
	msgInvalidID  = "Invalid image ID"
	msgNotFound   = "Image not found"
	parallelSaves = 4
)

// File 上传的单个文件；Open 每次返回新的读取器
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type Limits struct {
	MaxFiles     int
	MaxFileBytes int64
}

type Service struct {
	repo   domain.ImageRepository
	limits Limits
	log    *zap.Logger
	now    func() time.Time
}

func NewService(repo domain.ImageRepository, limits Limits, log *zap.Logger) *Service {
	if limits.MaxFiles <= 0 {
		limits.MaxFiles = 10
	}
	if limits.MaxFileBytes <= 0 {
		limits.MaxFileBytes = 5 << 20
	}
	return &Service{repo: repo, limits: limits, log: log.Named("gallery"), now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) storeErr(op string, err error) error {
	s.log.Error("store failed", zap.String("op", op), zap.Error(err))
	return apperr.Internal("Failed to store images", err)
}

func URLOf(id string) string { return "/api/upload/" + id }

func (s *Service) validate(files []File) error {
	if len(files) == 0 {
		return apperr.InvalidInput(msgNoFiles)
	}
	if len(files) > s.limits.MaxFiles {
		return apperr.InvalidInput(fmt.Sprintf("At most %d images per upload", s.limits.MaxFiles))
	}
	for _, f := range files {
		if f.Size > s.limits.MaxFileBytes {
			return apperr.InvalidInput(fmt.Sprintf("%s exceeds %d MB", f.Name, s.limits.MaxFileBytes>>20))
		}
	}
	return nil
}

// Upload 先整体校验，再并发写入；任一失败则整体失败
func (s *Service) Upload(ctx context.Context, files []File) ([]domain.Image, error) {
	if err := s.validate(files); err != nil {
		return nil, err
	}
	out := make([]domain.Image, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallelSaves)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			img, err := s.save(gctx, f)
			if err != nil {
				return err
			}
			out[i] = *img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if apperr.KindOf(err) != apperr.KindInternal {
			return nil, err
		}
		return nil, s.storeErr("upload", err)
	}
	metrics.EventN(metrics.EventImageUploaded, len(out))
	return out, nil
}

func (s *Service) save(ctx context.Context, f File) (*domain.Image, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	// 按内容嗅探类型，不信任客户端声明
	br := bufio.NewReaderSize(rc, 512)
	head, _ := br.Peek(512)
	ct := http.DetectContentType(head)
	if !strings.HasPrefix(ct, "image/") {
		return nil, apperr.InvalidInput(fmt.Sprintf("%s is not an image", f.Name))
	}
	img := &domain.Image{Name: f.Name, ContentType: ct, CreatedAt: s.now()}
	if err := s.repo.Save(ctx, img, br); err != nil {
		return nil, err
	}
	img.URL = URLOf(img.ID)
	return img, nil
}

func (s *Service) List(ctx context.Context) ([]domain.Image, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return nil, s.storeErr("list", err)
	}
	for i := range items {
		items[i].URL = URLOf(items[i].ID)
	}
	return items, nil
}

// Open 调用方负责关闭返回的读取器
func (s *Service) Open(ctx context.Context, id string) (*domain.Image, io.ReadCloser, error) {
	if !utils.ValidID(id) {
		return nil, nil, apperr.InvalidID(msgInvalidID)
	}
	img, rc, err := s.repo.Open(ctx, id)
	if err != nil {
		return nil, nil, s.storeErr("open", err)
	}
	if img == nil {
		return nil, nil, apperr.NotFound(msgNotFound)
	}
	img.URL = URLOf(img.ID)
	return img, rc, nil
}
