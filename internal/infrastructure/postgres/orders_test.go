package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tamales-preorder/internal/domain"
)

var orderCols = []string{"id", "user_email", "user_name", "user_phone", "items", "grand_total", "created_at"}

func sampleOrder() *domain.Order {
	return &domain.Order{
		UserEmail: "a@b.com",
		UserName:  strPtr("Ana"),
		Items: []domain.LineItem{
			{ID: 1, Name: "Pork", Qty: 2, Total: domain.MoneyFromInt(20)},
			{ID: 3, Name: "Rajas", Qty: 1, Total: domain.MoneyFromInt(12)},
		},
		GrandTotal: domain.MoneyFromInt(32),
		CreatedAt:  time.Date(2025, 1, 20, 9, 0, 0, 0, time.UTC),
	}
}

func itemsJSON(t *testing.T, items []domain.LineItem) string {
	t.Helper()
	b, err := json.Marshal(items)
	require.NoError(t, err)
	return string(b)
}

func TestOrderRepo_Create_InsertsAndDecrementsInOneTx(t *testing.T) {
	db, mock := newMockDB(t)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectQuery(insertOrder).
		WithArgs("a@b.com", "Ana", nil, itemsJSON(t, o.Items), "32", o.CreatedAt).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec(decrementInventory).WithArgs(2, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(decrementInventory).WithArgs(1, int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	id, err := NewOrderRepo(db).Create(context.Background(), o, true)

	require.NoError(t, err)
	assert.Equal(t, int64(7), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Create_UntrackedItemIsSkipped(t *testing.T) {
	db, mock := newMockDB(t)
	o := sampleOrder()
	o.Items = o.Items[:1]

	mock.ExpectBegin()
	mock.ExpectQuery(insertOrder).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectExec(decrementInventory).WithArgs(2, int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(inventoryExists).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectCommit()

	id, err := NewOrderRepo(db).Create(context.Background(), o, true)

	require.NoError(t, err)
	assert.Equal(t, int64(8), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Create_OversoldRollsBack(t *testing.T) {
	db, mock := newMockDB(t)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectQuery(insertOrder).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectExec(decrementInventory).WithArgs(2, int64(1)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(inventoryExists).WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := NewOrderRepo(db).Create(context.Background(), o, true)

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrConflict))
	assert.Equal(t, "insufficient inventory for item 1", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Create_DuplicateLinesAreSummed(t *testing.T) {
	db, mock := newMockDB(t)
	o := sampleOrder()
	o.Items = []domain.LineItem{
		{ID: 1, Name: "Pork", Qty: 2, Total: domain.MoneyFromInt(20)},
		{ID: 1, Name: "Pork", Qty: 3, Total: domain.MoneyFromInt(30)},
	}

	mock.ExpectBegin()
	mock.ExpectQuery(insertOrder).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(10)))
	mock.ExpectExec(decrementInventory).WithArgs(5, int64(1)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	_, err := NewOrderRepo(db).Create(context.Background(), o, true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Create_WithoutInventoryTracking(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(insertOrder).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectCommit()

	id, err := NewOrderRepo(db).Create(context.Background(), sampleOrder(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_Create_InsertFailureRollsBack(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(insertOrder).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := NewOrderRepo(db).Create(context.Background(), sampleOrder(), true)
	assert.ErrorContains(t, err, "insert order: disk full")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ListByEmail_DecodesItems(t *testing.T) {
	db, mock := newMockDB(t)
	o := sampleOrder()
	newer := o.CreatedAt.Add(time.Hour)

	mock.ExpectQuery(selectOrdersByEmail).
		WithArgs("a@b.com").
		WillReturnRows(sqlmock.NewRows(orderCols).
			AddRow(int64(2), "a@b.com", "Ana", nil, itemsJSON(t, o.Items[:1]), "20.00", newer).
			AddRow(int64(1), "a@b.com", "Ana", nil, itemsJSON(t, o.Items), "32.00", o.CreatedAt))

	orders, err := NewOrderRepo(db).ListByEmail(context.Background(), "a@b.com")

	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, int64(2), orders[0].ID)
	assert.Equal(t, o.Items, orders[1].Items)
	assert.True(t, orders[1].GrandTotal.Equal(o.GrandTotal.Decimal))
	assert.Nil(t, orders[1].UserPhone)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_ListByEmail_EmptyIsNotNil(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(selectOrdersByEmail).WithArgs("new@b.com").WillReturnRows(sqlmock.NewRows(orderCols))

	orders, err := NewOrderRepo(db).ListByEmail(context.Background(), "new@b.com")
	require.NoError(t, err)
	assert.NotNil(t, orders)
	assert.Empty(t, orders)
}

func TestOrderRepo_ListByEmail_CorruptItemsBlob(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectQuery(selectOrdersByEmail).
		WillReturnRows(sqlmock.NewRows(orderCols).AddRow(int64(4), "a@b.com", nil, nil, "{not json", "1", time.Now()))

	_, err := NewOrderRepo(db).ListByEmail(context.Background(), "a@b.com")
	assert.ErrorContains(t, err, "decode items of order 4")
}

func TestOrderRepo_DeleteOwned(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(deleteOwnedOrder).WithArgs(int64(5), "a@b.com").WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewOrderRepo(db).DeleteOwned(context.Background(), 5, "a@b.com"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepo_DeleteOwned_WrongOwnerDeletesNothing(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectExec(deleteOwnedOrder).WithArgs(int64(5), "mallory@x.com").WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewOrderRepo(db).DeleteOwned(context.Background(), 5, "mallory@x.com")

	assert.True(t, errors.Is(err, domain.ErrNotFound))
	assert.Equal(t, "Order not found or unauthorized", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}
