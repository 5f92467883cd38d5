package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/youthorg/admingate/internal/domain"
	"github.com/youthorg/admingate/internal/repository"
)

type PostService struct {
	posts    repository.PostRepository
	activity *ActivityLogger
}

func NewPostService(posts repository.PostRepository, activity *ActivityLogger) *PostService {
	return &PostService{posts: posts, activity: activity}
}

func (s *PostService) List(ctx context.Context, page repository.PageRequest) (repository.PageResult[domain.Post], error) {
	return s.posts.List(ctx, page)
}

func (s *PostService) Create(ctx context.Context, actor *Principal, title, body string) (*domain.Post, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	post := &domain.Post{Title: title, Body: body, AuthorID: actor.UserID}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorID:   actor.UserID,
		ActorName: actor.ActorName(),
		Action:    domain.ActivityCreatePost,
		Target:    fmt.Sprintf("post:%d", post.ID),
		Detail:    title,
	})
	return post, nil
}

func (s *PostService) Delete(ctx context.Context, actor *Principal, id uint) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.activity.Record(ctx, domain.ActivityLog{
		ActorID:   actor.UserID,
		ActorName: actor.ActorName(),
		Action:    domain.ActivityDeletePost,
		Target:    fmt.Sprintf("post:%d", id),
	})
	return nil
}
