package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/wire"
	"github.com/gowvp/hawk/internal/conf"
	"github.com/gowvp/hawk/internal/core/record"
	"github.com/gowvp/hawk/internal/core/record/store/recorddb"
	"github.com/ixugo/goddd/pkg/orm"
	"gorm.io/gorm"
)

var ProviderSet = wire.NewSet(
	wire.Struct(new(Usecase), "*"),
	NewHTTPHandler,
	NewRecordStore, NewRecordCore,
	NewRecordAPI,
	NewStreamAPI,
)

type Usecase struct {
	Conf      *conf.Bootstrap
	DB        *gorm.DB
	RecordAPI RecordAPI
	StreamAPI StreamAPI
}

// NewHTTPHandler 生成Gin框架路由内容
func NewHTTPHandler(uc *Usecase) http.Handler {
	if !uc.Conf.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	g := gin.New()
	setupRouter(g, uc)
	return g
}

// NewRecordStore 创建录制存储层
func NewRecordStore(db *gorm.DB) record.Storer {
	return recorddb.NewDB(db).AutoMigrate(orm.GetEnabledAutoMigrate())
}

// NewRecordCore 创建录制核心服务
func NewRecordCore(store record.Storer, cfg *conf.Bootstrap) record.Core {
	core := record.NewCore(store, record.WithConfig(&cfg.Server.Recording))

	// 启动清理协程
	go core.StartCleanupWorker()

	return core
}
