// Package seed provides database seeding utilities for development and testing.
// Demo content is written through the service layer, so seeded data obeys the
// same invariants as data created over HTTP.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"atelier/internal/middleware"
	"atelier/internal/models"
	"atelier/internal/repository"
	"atelier/internal/service"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	// Seed makes generated content reproducible; zero picks a random seed.
	Seed int64
	// ShouldClean removes existing posts and their dependents first.
	ShouldClean bool
	// CategoriesOnly ensures the preset's categories and stops.
	CategoriesOnly bool
	Fee            service.Fee
}

// Result summarizes what a seeding run created.
type Result struct {
	Categories int
	Posts      int
	Paid       int
	Approved   int
	Votes      int
	Comments   int
}

// Seed fills db according to preset.
func Seed(ctx context.Context, db *gorm.DB, preset *Preset, opts Options) (*Result, error) {
	if err := preset.Validate(); err != nil {
		return nil, err
	}
	if opts.Fee.AmountCents == 0 {
		opts.Fee = service.Fee{AmountCents: 500, Currency: "USD"}
	}

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}

	store := repository.NewStore(db)
	categories, err := Categories(ctx, store, preset.Categories)
	if err != nil {
		return nil, err
	}
	res := &Result{Categories: len(categories)}
	if opts.CategoriesOnly {
		return res, nil
	}

	f := NewFactory(store, opts.Fee, opts.Seed)
	users := f.UserIDs(preset.Users)

	for _, cat := range categories {
		text, image, link, artwork := computeCounts(preset.Posts.PerCategory, preset.Posts.Distribution)
		plan := []struct {
			t models.PostType
			n int
		}{
			{models.PostTypeText, text},
			{models.PostTypeImage, image},
			{models.PostTypeLink, link},
			{models.PostTypeArtwork, artwork},
		}
		for _, p := range plan {
			for range p.n {
				if err := f.seedPost(ctx, preset, res, users, cat.ID, p.t); err != nil {
					return nil, err
				}
			}
		}
	}

	middleware.Logger.Info("seed complete",
		slog.Int("categories", res.Categories),
		slog.Int("posts", res.Posts),
		slog.Int("paid", res.Paid),
		slog.Int("approved", res.Approved),
		slog.Int("votes", res.Votes),
		slog.Int("comments", res.Comments))
	return res, nil
}

func (f *Factory) seedPost(ctx context.Context, preset *Preset, res *Result, users []uint, categoryID uint, postType models.PostType) error {
	author := f.pick(users)
	post, err := f.CreatePost(ctx, author, categoryID, postType, preset.Posts.MaxDays)
	if err != nil {
		return fmt.Errorf("create %s post: %w", postType, err)
	}
	res.Posts++

	if postType == models.PostTypeArtwork {
		if !f.chance(preset.Artwork.PaidRatio) {
			return nil
		}
		if err := f.Pay(ctx, post); err != nil {
			return fmt.Errorf("pay post %d: %w", post.ID, err)
		}
		res.Paid++
		if !f.chance(preset.Artwork.ApprovedRatio) {
			return nil
		}
		if err := f.Approve(ctx, post, f.pick(users)); err != nil {
			return fmt.Errorf("approve post %d: %w", post.ID, err)
		}
		res.Approved++
	}

	votes, err := f.Vote(ctx, post, users, preset.Engagement.VotesPerPost)
	if err != nil {
		return fmt.Errorf("vote on post %d: %w", post.ID, err)
	}
	res.Votes += votes

	comments, err := f.Discuss(ctx, post, users, preset.Engagement.CommentsPerPost, preset.Engagement.ReplyRatio)
	if err != nil {
		return fmt.Errorf("comment on post %d: %w", post.ID, err)
	}
	res.Comments += comments
	return nil
}

// clearData removes posts and everything hanging off them. Moderation history
// is append-only at the database level, so it is truncated with raw SQL.
func clearData(db *gorm.DB) error {
	tables := []string{"comment_votes", "votes", "comments", "moderation_actions", "payments", "posts"}
	return db.Transaction(func(tx *gorm.DB) error {
		if tx.Dialector.Name() == "postgres" {
			return tx.Exec("TRUNCATE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE").Error
		}
		for _, t := range tables {
			if err := tx.Exec("DELETE FROM " + t).Error; err != nil {
				return err
			}
		}
		return tx.Model(&models.Category{}).Where("1 = 1").UpdateColumn("post_count", 0).Error
	})
}
