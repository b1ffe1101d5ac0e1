package models

// 以下模型在每个学校自己的schema中创建，表名前缀由开通时的连接决定，
// 所以这里不定义 TableName。

// Student 学生
type Student struct {
	TenantBaseModel
	Name  string `json:"name" gorm:"size:255"`
	Class string `json:"class" gorm:"size:255"`
}

// Teacher 教师
type Teacher struct {
	TenantBaseModel
	Name    string `json:"name" gorm:"size:255"`
	Subject string `json:"subject" gorm:"size:255"`
}

// TenantBaselineModels 开通时同步的基础表
func TenantBaselineModels() []interface{} {
	return []interface{}{&Student{}, &Teacher{}}
}
