package domain

import "errors"

var (
	// ErrProductIDRequired — у позиции отсутствует идентификатор товара.
	ErrProductIDRequired = errors.New("product id is required")
	// ErrQuantityInvalid — количество позиции меньше единицы.
	ErrQuantityInvalid = errors.New("quantity must be at least 1")
	// ErrPriceNegative — отрицательная цена товара.
	ErrPriceNegative = errors.New("price must be non-negative")
	// ErrDuplicateLineItem — две позиции с одним ID товара.
	ErrDuplicateLineItem = errors.New("duplicate line item for product")
	// ErrUserIDRequired — не указан пользователь корзины.
	ErrUserIDRequired = errors.New("user id is required")
	// ErrCartNotFound возвращается, если у пользователя нет серверной корзины.
	ErrCartNotFound = errors.New("cart not found")
	// ErrProductNotFound — товара нет в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrStorageKeyNotFound — в локальном хранилище нет записи под ключом.
	ErrStorageKeyNotFound = errors.New("storage key not found")
	// ErrRemoteUnavailable — сервер корзин ответил неуспешным статусом.
	ErrRemoteUnavailable = errors.New("cart remote unavailable")

	// ErrCartEmpty — оформление заказа из пустой корзины.
	ErrCartEmpty = errors.New("cart is empty")
	// ErrShippingAddressIncomplete — не заполнены поля адреса доставки.
	ErrShippingAddressIncomplete = errors.New("shipping address is incomplete")
	// ErrOrderNotFound возвращается, если заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderExists — заказ с таким ID уже сохранён.
	ErrOrderExists = errors.New("order already exists")
	// ErrOrderTotalMismatch — итог заказа не совпадает с суммой позиций.
	ErrOrderTotalMismatch = errors.New("order total does not match items")
	// ErrOrderStatusInvalid — статус вне перечня.
	ErrOrderStatusInvalid = errors.New("order status is invalid")
	// ErrPageInvalid — номер страницы меньше 1.
	ErrPageInvalid = errors.New("page must be at least 1")
)

// IsNotFound проверяет ошибки отсутствия данных.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrCartNotFound) ||
		errors.Is(err, ErrOrderNotFound) ||
		errors.Is(err, ErrProductNotFound) ||
		errors.Is(err, ErrStorageKeyNotFound)
}
