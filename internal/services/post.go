package services

import (
	"context"
	"net/url"
	"strings"
	"unicode/utf8"

	"gorm.io/gorm"

	"hnlite/internal/models"
)

// site 过滤按字面量匹配, 转义 LIKE 通配符
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// PostService is the thin post collaborator: submission, lookup and listing.
// Post votes and comment counts are owned by VoteLedger and CommentService.
type PostService struct {
	db *gorm.DB
}

func NewPostService(conn *gorm.DB) *PostService {
	return &PostService{db: conn}
}

// NewPost is a submission as received from the form.
type NewPost struct {
	Title   string
	URL     string
	Content string
}

func (n NewPost) validate() (title string, link, content *string, err error) {
	title = strings.TrimSpace(n.Title)
	if l := utf8.RuneCountInString(title); l < 3 || l > 255 {
		return "", nil, nil, invalid("title", "title must be between 3 and 255 characters")
	}
	if u := strings.TrimSpace(n.URL); u != "" {
		parsed, perr := url.ParseRequestURI(u)
		if perr != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return "", nil, nil, invalid("url", "url must be a valid http(s) URL")
		}
		link = &u
	}
	if c := strings.TrimSpace(n.Content); c != "" {
		content = &c
	}
	if link == nil && content == nil {
		return "", nil, nil, invalid("content", "either URL or content must be provided")
	}
	return title, link, content, nil
}

func (s *PostService) Create(ctx context.Context, in NewPost, author models.User) (PostView, error) {
	title, link, content, err := in.validate()
	if err != nil {
		return PostView{}, err
	}
	post := models.Post{
		UserID:  author.ID,
		Title:   title,
		URL:     link,
		Content: content,
	}
	if err := s.db.WithContext(ctx).Create(&post).Error; err != nil {
		return PostView{}, classify(err)
	}
	post.Author = author
	return postView(post, 0), nil
}

func (s *PostService) Get(ctx context.Context, id, viewerID uint) (PostView, error) {
	query := s.db.WithContext(ctx).Preload("Author", selectAuthor)
	if viewerID != 0 {
		query = query.Preload("PostUpvotes", "user_id = ?", viewerID)
	}
	var post models.Post
	res := query.Where("id = ?", id).Limit(1).Find(&post)
	if res.Error != nil {
		return PostView{}, res.Error
	}
	if res.RowsAffected == 0 {
		return PostView{}, ErrPostNotFound
	}
	return postView(post, viewerID), nil
}

func (s *PostService) List(ctx context.Context, q ListQuery, viewerID uint) (Page[PostView], error) {
	conn := s.db.WithContext(ctx)
	filter := func(tx *gorm.DB) *gorm.DB {
		if q.Author != "" {
			tx = tx.Where("user_id IN (?)", conn.Model(&models.User{}).Select("id").Where("username = ?", q.Author))
		}
		if q.Site != "" {
			tx = tx.Where(`url LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(q.Site)+"%")
		}
		return tx
	}

	var total int64
	if err := conn.Model(&models.Post{}).Scopes(filter).Count(&total).Error; err != nil {
		return Page[PostView]{}, err
	}
	pagination := Pagination{Page: q.Page, TotalPages: TotalPages(total, q.Limit)}
	if q.pastEnd(total) {
		return Page[PostView]{Items: []PostView{}, Pagination: pagination}, nil
	}

	query := conn.Model(&models.Post{}).Scopes(filter, q.orderBy).
		Preload("Author", selectAuthor).
		Offset(q.offset()).
		Limit(q.Limit)
	if viewerID != 0 {
		query = query.Preload("PostUpvotes", "user_id = ?", viewerID)
	}

	var rows []models.Post
	if err := query.Find(&rows).Error; err != nil {
		return Page[PostView]{}, err
	}

	items := make([]PostView, 0, len(rows))
	for _, p := range rows {
		items = append(items, postView(p, viewerID))
	}
	return Page[PostView]{Items: items, Pagination: pagination}, nil
}
