package relationships

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conduit-lang/breeze/internal/orm/codegen"
	"github.com/conduit-lang/breeze/internal/orm/dialect"
	"github.com/conduit-lang/breeze/internal/orm/metadata"
	"github.com/conduit-lang/breeze/internal/orm/record"
	"github.com/conduit-lang/breeze/internal/orm/schema"
)

const storeMetadata = `{
	"structuralTypes": [
		{
			"shortName": "Author",
			"autoGeneratedKeyType": "Identity",
			"dataProperties": [
				{"name": "id", "dataType": "Int32", "isPartOfKey": true},
				{"name": "name", "dataType": "String"}
			],
			"navigationProperties": [
				{"name": "books", "entityTypeName": "Book", "isScalar": false}
			]
		},
		{
			"shortName": "Book",
			"autoGeneratedKeyType": "Identity",
			"dataProperties": [
				{"name": "id", "dataType": "Int32", "isPartOfKey": true},
				{"name": "title", "dataType": "String"}
			],
			"navigationProperties": [
				{"name": "author", "entityTypeName": "Author", "isScalar": true},
				{"name": "genres", "entityTypeName": "Genre", "isScalar": false}
			]
		},
		{
			"shortName": "Genre",
			"autoGeneratedKeyType": "Identity",
			"dataProperties": [
				{"name": "id", "dataType": "Int32", "isPartOfKey": true},
				{"name": "label", "dataType": "String"}
			],
			"navigationProperties": [
				{"name": "books", "entityTypeName": "Book", "isScalar": false}
			]
		}
	]
}`

func newTestLoader(t *testing.T) (*Loader, *schema.Schema, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	doc, err := metadata.Parse([]byte(storeMetadata))
	require.NoError(t, err)
	s, err := metadata.Import(doc, metadata.Options{})
	require.NoError(t, err)
	require.NoError(t, schema.ResolveAssociations(s))

	d := dialect.MySQL{}
	tables, err := codegen.NewBuilder(d).Build(s)
	require.NoError(t, err)

	return NewLoader(db, d, tables), s, mock
}

func entity(t *testing.T, s *schema.Schema, name string) *schema.EntityType {
	t.Helper()
	e, ok := s.Entity(name)
	require.True(t, ok)
	return e
}

func TestEagerLoad_Dependents(t *testing.T) {
	l, s, mock := newTestLoader(t)

	mock.ExpectQuery("SELECT `id`, `title`, `authorId` FROM `Books` WHERE `authorId` IN (?, ?)").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "authorId"}).
			AddRow(int64(10), "Dune", int64(1)).
			AddRow(int64(11), "Children of Dune", int64(1)))

	authors := []record.Record{
		{"id": int64(1), "name": "Herbert"},
		{"id": int64(2), "name": "Le Guin"},
	}
	require.NoError(t, l.EagerLoad(context.Background(), entity(t, s, "Author"), authors, []string{"books"}))

	assert.Len(t, authors[0]["books"], 2)
	assert.Equal(t, []record.Record{}, authors[1]["books"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEagerLoad_PrincipalAndNested(t *testing.T) {
	l, s, mock := newTestLoader(t)

	mock.ExpectQuery("SELECT `id`, `name` FROM `Authors` WHERE `id` IN (?)").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Herbert"))
	mock.ExpectQuery("SELECT `id`, `title`, `authorId` FROM `Books` WHERE `authorId` IN (?)").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "authorId"}).
			AddRow(int64(10), "Dune", int64(1)).
			AddRow(int64(12), "Whipping Star", int64(1)))

	books := []record.Record{
		{"id": int64(10), "title": "Dune", "authorId": int64(1)},
		{"id": int64(99), "title": "Anonymous", "authorId": nil},
	}
	err := l.EagerLoad(context.Background(), entity(t, s, "Book"), books, []string{"author", "author.books"})
	require.NoError(t, err)

	author, ok := books[0]["author"].(record.Record)
	require.True(t, ok)
	assert.Equal(t, "Herbert", author["name"])
	assert.Len(t, author["books"], 2)
	assert.Nil(t, books[1]["author"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEagerLoad_ManyToMany(t *testing.T) {
	l, s, mock := newTestLoader(t)

	mock.ExpectQuery("SELECT `bookId`, `genreId` FROM `BookGenre` WHERE `bookId` IN (?, ?)").
		WithArgs(int64(10), int64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"bookId", "genreId"}).
			AddRow(int64(10), int64(1)).
			AddRow(int64(10), int64(2)).
			AddRow(int64(11), int64(2)))
	mock.ExpectQuery("SELECT `id`, `label` FROM `Genres` WHERE `id` IN (?, ?)").
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "label"}).
			AddRow(int64(1), "Science Fiction").
			AddRow(int64(2), "Classic"))

	books := []record.Record{{"id": int64(10)}, {"id": int64(11)}}
	require.NoError(t, l.EagerLoad(context.Background(), entity(t, s, "Book"), books, []string{"genres"}))

	first := books[0]["genres"].([]record.Record)
	second := books[1]["genres"].([]record.Record)
	require.Len(t, first, 2)
	require.Len(t, second, 1)
	assert.Equal(t, "Classic", second[0]["label"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEagerLoad_Errors(t *testing.T) {
	l, s, mock := newTestLoader(t)
	ctx := context.Background()
	books := []record.Record{{"id": int64(10)}}

	err := l.EagerLoad(ctx, entity(t, s, "Book"), books, []string{"publisher"})
	assert.ErrorIs(t, err, ErrUnknownRelationship)

	boom := errors.New("lost connection")
	mock.ExpectQuery("SELECT `bookId`, `genreId` FROM `BookGenre` WHERE `bookId` IN (?)").
		WillReturnError(boom)
	err = l.EagerLoad(ctx, entity(t, s, "Book"), books, []string{"genres"})
	assert.ErrorIs(t, err, boom)
	_, loaded := books[0]["genres"]
	assert.False(t, loaded)

	l.maxDepth = 1
	mock.ExpectQuery("SELECT `id`, `name` FROM `Authors` WHERE `id` IN (?)").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "Herbert"))
	books[0]["authorId"] = int64(1)
	err = l.EagerLoad(ctx, entity(t, s, "Book"), books, []string{"author.books"})
	assert.ErrorIs(t, err, ErrMaxDepthExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEagerLoad_NoRecordsRunsNoQuery(t *testing.T) {
	l, s, mock := newTestLoader(t)

	require.NoError(t, l.EagerLoad(context.Background(), entity(t, s, "Author"), nil, []string{"books"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadSingle_LeavesRecordUntouched(t *testing.T) {
	l, s, mock := newTestLoader(t)

	mock.ExpectQuery("SELECT `id`, `title`, `authorId` FROM `Books` WHERE `authorId` IN (?)").
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "authorId"}).AddRow(int64(10), "Dune", int64(1)))

	author := record.Record{"id": int64(1)}
	v, err := l.LoadSingle(context.Background(), entity(t, s, "Author"), author, "books")
	require.NoError(t, err)
	assert.Len(t, v, 1)
	_, touched := author["books"]
	assert.False(t, touched)
}

func TestLazyRelation(t *testing.T) {
	calls := 0
	fail := true
	lr := NewLazyRelation(func(ctx context.Context) (interface{}, error) {
		calls++
		if fail {
			return nil, errors.New("offline")
		}
		return "loaded", nil
	})

	_, err := lr.Get(context.Background())
	require.Error(t, err)
	assert.False(t, lr.IsLoaded())

	fail = false
	v, err := lr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)

	v, err = lr.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "loaded", v)
	assert.Equal(t, 2, calls)

	lr.Set("preset")
	v, _ = lr.Get(context.Background())
	assert.Equal(t, "preset", v)
}

func TestKeyHelpers(t *testing.T) {
	recs := []record.Record{{"k": 1}, {"k": int64(1)}, {"k": nil}, {"k": []byte("a")}, {"k": "a"}, {}}
	assert.Equal(t, []interface{}{1, []byte("a")}, collectKeys(recs, "k"))
	assert.Equal(t, int64(3), keyOf(int32(3)))
	assert.Equal(t, "x", keyOf([]byte("x")))
}
