package usecase

import "storefront/internal/domain/model"

// 認可の判定。ルーティングとは切り離して (user, resource) だけで決める

func CanAccessCart(userID int64, cart model.Cart) bool {
	return userID > 0 && cart.UserID == userID
}

func CanAccessOrder(userID int64, order model.Order) bool {
	return userID > 0 && order.UserID == userID
}

func CanUseAddress(userID int64, address model.Address) bool {
	return userID > 0 && address.UserID == userID
}

func CanAdminister(role model.Role) bool {
	return role == model.RoleAdmin
}
