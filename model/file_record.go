package model

// FileStoreName is the single record store of the database.
const FileStoreName = "files"

// FileRecord is a stored file. ID is assigned by the store on insert and never reused.
type FileRecord struct {
	ID uint64 `gorm:"primaryKey;autoIncrement" json:"id"`

	Name string `gorm:"column:name;not null" json:"name"`
	Type string `gorm:"column:type;not null;default:''" json:"type"`

	Content []byte `gorm:"column:content" json:"-"`
}

// TableName returns the database table name.
func (FileRecord) TableName() string {
	return FileStoreName
}

// Size returns the content length in bytes.
func (f *FileRecord) Size() int64 {
	return int64(len(f.Content))
}

/*
Content 保存的是完整读入内存的字节序列 而不是文件句柄
registry 返回的记录与内存列表共享 Content 的底层数组 调用方只读使用 不要修改
*/
