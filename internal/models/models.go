package models

// All lists the relational models for migrations.
func All() []any {
	return []any{
		&User{}, &Session{}, &Category{}, &Tag{}, &Game{},
		&Post{}, &PostLike{}, &Comment{}, &Review{},
		&Follow{}, &Block{}, &Report{}, &Upload{},
	}
}
