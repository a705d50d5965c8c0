package service

import "fmt"

// MetricKey 是可被任务追踪的指标标识，闭合枚举。
// 新增可追踪指标时在此注册并补充 metricBindings，聚合器即可感知。
type MetricKey string

const (
	MetricWaterML         MetricKey = "WATER_ML"
	MetricSteps           MetricKey = "STEPS"
	MetricExerciseMinutes MetricKey = "EXERCISE_MINUTES"
	MetricCaloriesBurned  MetricKey = "CALORIES_BURNED"
	MetricMealCalories    MetricKey = "MEAL_CALORIES"
	MetricSleepMinutes    MetricKey = "SLEEP_MINUTES"
	MetricMoodScore       MetricKey = "MOOD_SCORE"
)

// AggregationFn 描述指标的聚合方式
type AggregationFn string

const (
	// AggSum 对当日所有记录求和
	AggSum AggregationFn = "SUM"
	// AggMax 取当日记录中的最大值
	AggMax AggregationFn = "MAX"
	// AggLatest 取当日最后一条记录的值
	AggLatest AggregationFn = "LATEST"
)

// MetricBinding 把指标声明式地绑定到追踪数据的来源表/列/聚合函数
type MetricBinding struct {
	SourceTable string
	Column      string
	Fn          AggregationFn
}

// metricBindings 是指标注册表。表名与列名均为编译期常量，
// 聚合器据此拼查询，不存在运行期字符串分发。
var metricBindings = map[MetricKey]MetricBinding{
	MetricWaterML:         {SourceTable: "water_logs", Column: "volume_ml", Fn: AggSum},
	MetricSteps:           {SourceTable: "fitness_logs", Column: "steps", Fn: AggSum},
	MetricExerciseMinutes: {SourceTable: "fitness_logs", Column: "duration_minutes", Fn: AggSum},
	MetricCaloriesBurned:  {SourceTable: "fitness_logs", Column: "calories", Fn: AggSum},
	MetricMealCalories:    {SourceTable: "meal_logs", Column: "calories", Fn: AggSum},
	MetricSleepMinutes:    {SourceTable: "sleep_logs", Column: "duration_minutes", Fn: AggMax},
	MetricMoodScore:       {SourceTable: "mood_logs", Column: "score", Fn: AggLatest},
}

// BindingForMetric 返回指标对应的绑定；未注册的 key 属于目录配置错误
func BindingForMetric(key MetricKey) (MetricBinding, error) {
	binding, ok := metricBindings[key]
	if !ok {
		return MetricBinding{}, fmt.Errorf("unknown metric key: %s", key)
	}
	return binding, nil
}

// KnownMetricKey 供目录在保存模板时校验指标是否已注册
func KnownMetricKey(key string) bool {
	_, ok := metricBindings[MetricKey(key)]
	return ok
}
