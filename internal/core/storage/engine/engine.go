package engine

// Engine rendezvous 存储使用的键值引擎
//
// rendezvous 发布的键只写一次，因此接口只提供读取、覆盖写、
// 仅在缺失时写入与前缀遍历，不提供删除。
type Engine interface {
	// Get 获取指定键的值，键不存在返回 ErrNotFound
	Get(key []byte) ([]byte, error)

	// Put 写入键值对，覆盖已有值
	Put(key, value []byte) error

	// Insert 仅在键不存在时写入
	//
	// 键已存在时不修改，返回现有值且 inserted 为 false。
	Insert(key, value []byte) (existing []byte, inserted bool, err error)

	// Scan 按键序遍历具有指定前缀的键值对，回调返回 false 时停止
	Scan(prefix []byte, fn func(key, value []byte) bool) error

	// Close 关闭引擎（幂等）
	Close() error
}
