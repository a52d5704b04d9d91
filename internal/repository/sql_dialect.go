package repository

import (
	"fmt"
	"strings"

	"gorm.io/gorm"
)

// dbDialectName 获取数据库方言名称，默认按 sqlite 处理。
func dbDialectName(db *gorm.DB) string {
	if db == nil || db.Dialector == nil {
		return "sqlite"
	}
	name := strings.ToLower(strings.TrimSpace(db.Dialector.Name()))
	if name == "" {
		return "sqlite"
	}
	return name
}

func likeOperatorByDialect(dialect string) string {
	switch strings.ToLower(strings.TrimSpace(dialect)) {
	case "postgres", "postgresql":
		return "ILIKE"
	default:
		return "LIKE"
	}
}

// buildKeywordLikeCondition 构建多列模糊匹配条件，兼容 sqlite 与 postgres。
func buildKeywordLikeCondition(db *gorm.DB, keyword string, columns ...string) (string, []interface{}) {
	return buildKeywordLikeConditionByDialect(dbDialectName(db), keyword, columns...)
}

func buildKeywordLikeConditionByDialect(dialect, keyword string, columns ...string) (string, []interface{}) {
	operator := likeOperatorByDialect(dialect)
	like := "%" + keyword + "%"

	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, column := range columns {
		trimmed := strings.TrimSpace(column)
		if trimmed == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s %s ?", trimmed, operator))
		args = append(args, like)
	}

	return strings.Join(parts, " OR "), args
}
