package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"github.com/angelmondragon/auditmagic/pkg/config"
	"github.com/angelmondragon/auditmagic/pkg/db/models"
	"github.com/angelmondragon/auditmagic/pkg/enums"
	pkgerrors "github.com/angelmondragon/auditmagic/pkg/errors"
	"github.com/angelmondragon/auditmagic/pkg/logger"
	"github.com/angelmondragon/auditmagic/pkg/pagination"
)

const (
	defaultHistorySize     = 5
	defaultResultLimit     = 200
	defaultSuggestionLimit = 10
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service searches the inventory and remembers recent searches.
type Service interface {
	Search(ctx context.Context, query string, field enums.SearchField, limit int) ([]Hit, error)
	Autocomplete(ctx context.Context, prefix string, field enums.SearchField, limit int) ([]string, error)
	RecordSearch(ctx context.Context, query string, field enums.SearchField) (*models.SearchHistory, error)
	RecentSearches(ctx context.Context) ([]models.SearchHistory, error)
	ClearHistory(ctx context.Context) (int64, error)
}

// Hit is one matching item with its type.
type Hit struct {
	Item     models.Item     `json:"item"`
	ItemType models.ItemType `json:"item_type"`
}

type service struct {
	repo            Repository
	tx              txRunner
	logg            *logger.Logger
	historySize     int
	resultLimit     int
	suggestionLimit int
	now             func() time.Time
}

// NewService wires the search service. Zero sizes in cfg fall back to the
// defaults (5 history entries, 200 results, 10 suggestions).
func NewService(repo Repository, tx txRunner, cfg config.SearchConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("search repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	s := &service{
		repo:            repo,
		tx:              tx,
		logg:            logg,
		historySize:     cfg.HistorySize,
		resultLimit:     cfg.ResultLimit,
		suggestionLimit: cfg.SuggestionLimit,
		now:             time.Now,
	}
	if s.historySize <= 0 {
		s.historySize = defaultHistorySize
	}
	if s.resultLimit <= 0 {
		s.resultLimit = defaultResultLimit
	}
	if s.suggestionLimit <= 0 {
		s.suggestionLimit = defaultSuggestionLimit
	}
	return s, nil
}

func (s *service) Search(ctx context.Context, query string, field enums.SearchField, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	if !field.IsValid() {
		return nil, invalidField(field)
	}
	if limit <= 0 {
		limit = s.resultLimit
	}
	limit = min(limit, pagination.MaxLimit)

	items, err := s.repo.SearchItems(ctx, query, field, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: search items")
	}
	if len(items) == 0 {
		return []Hit{}, nil
	}

	ids := make([]int64, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item.ItemTypeID]; !ok {
			seen[item.ItemTypeID] = struct{}{}
			ids = append(ids, item.ItemTypeID)
		}
	}
	types, err := s.repo.TypesByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: load item types")
	}
	byID := make(map[int64]models.ItemType, len(types))
	for _, t := range types {
		byID[t.ID] = t
	}

	hits := make([]Hit, 0, len(items))
	for _, item := range items {
		hits = append(hits, Hit{Item: item, ItemType: byID[item.ItemTypeID]})
	}
	return hits, nil
}

// Autocomplete suggests names, sub types, serial numbers and words from type
// details that start with prefix, in collation order.
func (s *service) Autocomplete(ctx context.Context, prefix string, field enums.SearchField, limit int) ([]string, error) {
	if !field.IsValid() {
		return nil, invalidField(field)
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return []string{}, nil
	}
	if limit <= 0 {
		limit = s.suggestionLimit
	}

	var suggestions []string
	lookups := []struct {
		field enums.SearchField
		fetch func(context.Context, string, int) ([]string, error)
	}{
		{enums.SearchFieldItemType, s.repo.NamesWithPrefix},
		{enums.SearchFieldSubType, s.repo.SubTypesWithPrefix},
		{enums.SearchFieldSerialNumber, s.repo.SerialsWithPrefix},
	}
	for _, lookup := range lookups {
		if !field.Includes(lookup.field) {
			continue
		}
		values, err := lookup.fetch(ctx, prefix, limit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: autocomplete "+string(lookup.field))
		}
		suggestions = append(suggestions, values...)
	}

	if field.Includes(enums.SearchFieldDetails) {
		details, err := s.repo.DetailsContaining(ctx, prefix, limit)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: autocomplete details")
		}
		suggestions = append(suggestions, wordsWithPrefix(details, prefix)...)
	}

	out := dedupe(suggestions)
	collate.New(language.Und, collate.IgnoreCase).SortStrings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// wordsWithPrefix splits each text into words and keeps those whose case
// folded form starts with the folded prefix.
func wordsWithPrefix(texts []string, prefix string) []string {
	fold := cases.Fold()
	want := fold.String(prefix)

	var words []string
	for _, text := range texts {
		for _, word := range strings.Fields(text) {
			word = strings.TrimFunc(word, unicode.IsPunct)
			if word == "" {
				continue
			}
			if strings.HasPrefix(fold.String(word), want) {
				words = append(words, word)
			}
		}
	}
	return words
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// RecordSearch remembers a search. Repeating an identical search moves it to
// the top instead of adding a row; only the newest entries are kept.
func (s *service) RecordSearch(ctx context.Context, query string, field enums.SearchField) (*models.SearchHistory, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "search query is required")
	}
	if !field.IsValid() {
		return nil, invalidField(field)
	}

	var fieldValue *string
	if field != enums.SearchFieldAll {
		v := string(field)
		fieldValue = &v
	}

	var entry *models.SearchHistory
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		at := s.now().UTC()

		existing, err := repo.FindHistory(ctx, query, fieldValue)
		switch {
		case err == nil:
			if err := repo.TouchHistory(ctx, existing.ID, at); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: touch search history")
			}
			existing.CreatedAt = at
			entry = existing
		case errors.Is(err, gorm.ErrRecordNotFound):
			entry = &models.SearchHistory{SearchQuery: query, SearchField: fieldValue, CreatedAt: at}
			if err := repo.CreateHistory(ctx, entry); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: create search history")
			}
		default:
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: find search history")
		}

		if _, err := repo.TrimHistory(ctx, s.historySize); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: trim search history")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *service) RecentSearches(ctx context.Context) ([]models.SearchHistory, error) {
	entries, err := s.repo.RecentHistory(ctx, s.historySize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: recent searches")
	}
	return entries, nil
}

func (s *service) ClearHistory(ctx context.Context) (int64, error) {
	n, err := s.repo.ClearHistory(ctx)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "db: clear search history")
	}
	s.logg.Info(s.logg.WithField(ctx, "removed", n), "search history cleared")
	return n, nil
}

func invalidField(field enums.SearchField) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "unknown search field %q", string(field)).
		WithDetails(map[string]any{"field": string(field)})
}
